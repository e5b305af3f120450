package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"payables-service/internal/app"
	"payables-service/internal/core"

	"github.com/shopspring/decimal"
)

// createPayable handles POST /api/payables.
func (h *Handler) createPayable(w http.ResponseWriter, r *http.Request) {
	var payload payablePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "malformed request body: "+err.Error(), "INVALID_JSON", http.StatusBadRequest)
		return
	}

	req := payload.normalize()
	req.Actor = actorFrom(r)

	result, err := h.svc.CreatePayable(r.Context(), req)
	if err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			writeFieldError(w, r, vErr.Error(), "VALIDATION_ERROR", vErr.Field, http.StatusBadRequest)
			return
		}
		writeError(w, r, err.Error(), "TRANSACTION_FAILURE", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// actorFrom identifies who performed the action for the audit trail. The
// authenticating proxy forwards the user in X-User; absent that, the entry
// is attributed to the system.
func actorFrom(r *http.Request) string {
	if u := r.Header.Get("X-User"); u != "" {
		return u
	}
	return "sistema"
}

// payablePayload is the legacy wire shape. Callers historically sent either
// camelCase or snake_case field names, and the counterparty as either
// cadastroId or an inline cadastro reference. All aliases are collapsed here
// in normalize(); nothing past this file ever sees the dual shape.
type payablePayload struct {
	Titulo string `json:"titulo"`

	CadastroID *int `json:"cadastroId"`
	Cadastro   *int `json:"cadastro"` // legacy inline reference

	ValorTotal      *decimal.Decimal `json:"valorTotal"`
	ValorTotalSnake *decimal.Decimal `json:"valor_total"`

	PlanoContaID      *int `json:"planoContaId"`
	PlanoContaIDSnake *int `json:"plano_conta_id"`

	CentroCustoID      *int `json:"centroCustoId"`
	CentroCustoIDSnake *int `json:"centro_custo_id"`

	DataEmissao      string `json:"dataEmissao"`
	DataEmissaoSnake string `json:"data_emissao"`

	DataLiquidacao      string `json:"dataLiquidacao"`
	DataLiquidacaoSnake string `json:"data_liquidacao"`

	Periodo     string `json:"periodo"`
	Origem      string `json:"origem"`
	Observacoes string `json:"observacoes"`
	Status      string `json:"status"`

	EmpresaID      *int `json:"empresaId"`
	EmpresaIDSnake *int `json:"empresa_id"`

	CondicaoPagamentoID      *int `json:"condicaoPagamentoId"`
	CondicaoPagamentoIDSnake *int `json:"condicao_pagamento_id"`

	Parcelas []parcelaPayload `json:"parcelas"`

	Rateios                 []rateioPayload `json:"rateios"`
	RateiosCentroCusto      []rateioPayload `json:"rateiosCentroCusto"`
	RateiosCentroCustoSnake []rateioPayload `json:"rateios_centro_custo"`
}

type parcelaPayload struct {
	Titulo string `json:"titulo"`

	DataVencimento      string `json:"dataVencimento"`
	DataVencimentoSnake string `json:"data_vencimento"`

	DataPagamento      string `json:"dataPagamento"`
	DataPagamentoSnake string `json:"data_pagamento"`

	DataCompensacao      string `json:"dataCompensacao"`
	DataCompensacaoSnake string `json:"data_compensacao"`

	ValorParcela      *decimal.Decimal `json:"valorParcela"`
	ValorParcelaSnake *decimal.Decimal `json:"valor_parcela"`

	Diferenca *decimal.Decimal `json:"diferenca"`

	ValorTotal      *decimal.Decimal `json:"valorTotal"`
	ValorTotalSnake *decimal.Decimal `json:"valor_total"`

	Status string `json:"status"`

	FormaPagamentoID      *int `json:"formaPagamentoId"`
	FormaPagamentoIDSnake *int `json:"forma_pagamento_id"`

	ContaCorrenteID      *int `json:"contaCorrenteId"`
	ContaCorrenteIDSnake *int `json:"conta_corrente_id"`
}

type rateioPayload struct {
	PlanoContaID      *int `json:"planoContaId"`
	PlanoContaIDSnake *int `json:"plano_conta_id"`

	CentroCustoID      *int `json:"centroCustoId"`
	CentroCustoIDSnake *int `json:"centro_custo_id"`

	Valor      *decimal.Decimal `json:"valor"`
	Percentual *decimal.Decimal `json:"percentual"`
}

func (p *payablePayload) normalize() app.CreatePayableRequest {
	req := app.CreatePayableRequest{
		Title:             p.Titulo,
		CounterpartyID:    intOrZero(coalesceInt(p.CadastroID, p.Cadastro)),
		TotalValue:        decOrZero(coalesceDec(p.ValorTotal, p.ValorTotalSnake)),
		ChartOfAccountID:  coalesceInt(p.PlanoContaID, p.PlanoContaIDSnake),
		CostCenterID:      coalesceInt(p.CentroCustoID, p.CentroCustoIDSnake),
		IssueDate:         coalesceStr(p.DataEmissao, p.DataEmissaoSnake),
		SettlementDate:    coalesceStr(p.DataLiquidacao, p.DataLiquidacaoSnake),
		Period:            p.Periodo,
		Origin:            p.Origem,
		Notes:             p.Observacoes,
		Status:            p.Status,
		CompanyID:         intOrZero(coalesceInt(p.EmpresaID, p.EmpresaIDSnake)),
		InstallmentPlanID: coalesceInt(p.CondicaoPagamentoID, p.CondicaoPagamentoIDSnake),
	}

	for _, pc := range p.Parcelas {
		req.Installments = append(req.Installments, app.InstallmentRequest{
			Title:           pc.Titulo,
			DueDate:         coalesceStr(pc.DataVencimento, pc.DataVencimentoSnake),
			PaymentDate:     coalesceStr(pc.DataPagamento, pc.DataPagamentoSnake),
			ClearingDate:    coalesceStr(pc.DataCompensacao, pc.DataCompensacaoSnake),
			Value:           decOrZero(coalesceDec(pc.ValorParcela, pc.ValorParcelaSnake)),
			Difference:      decOrZero(pc.Diferenca),
			TotalValue:      coalesceDec(pc.ValorTotal, pc.ValorTotalSnake),
			Status:          pc.Status,
			PaymentMethodID: coalesceInt(pc.FormaPagamentoID, pc.FormaPagamentoIDSnake),
			BankAccountID:   coalesceInt(pc.ContaCorrenteID, pc.ContaCorrenteIDSnake),
		})
	}

	for _, rt := range p.Rateios {
		req.AccountAllocations = append(req.AccountAllocations, app.AllocationRequest{
			TargetID: intOrZero(coalesceInt(rt.PlanoContaID, rt.PlanoContaIDSnake)),
			Value:    decOrZero(rt.Valor),
			Percent:  decOrZero(rt.Percentual),
		})
	}

	ccList := p.RateiosCentroCusto
	if len(ccList) == 0 {
		ccList = p.RateiosCentroCustoSnake
	}
	for _, rt := range ccList {
		req.CostCenterAllocations = append(req.CostCenterAllocations, app.AllocationRequest{
			TargetID: intOrZero(coalesceInt(rt.CentroCustoID, rt.CentroCustoIDSnake)),
			Value:    decOrZero(rt.Valor),
			Percent:  decOrZero(rt.Percentual),
		})
	}

	return req
}

func coalesceInt(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func coalesceDec(vals ...*decimal.Decimal) *decimal.Decimal {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func coalesceStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func decOrZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}
