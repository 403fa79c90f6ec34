package server

import (
	"net/http"
	"strings"

	paymentdomain "github.com/fieldserve/tradebill/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

type recordPaymentPayload struct {
	Amount     string `json:"amount"`
	Method     string `json:"method"`
	Reference  string `json:"reference"`
	Notes      string `json:"notes"`
	ReceivedAt string `json:"received_at"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	var payload recordPaymentPayload
	if err := c.BindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := parseMoney("amount", payload.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	receivedAt, err := parseOptionalTime("received_at", payload.ReceivedAt, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.RecordPayment(c.Request.Context(), paymentdomain.RecordPaymentRequest{
		DocumentID: c.Param("id"),
		Amount:     amount,
		Method:     paymentdomain.PaymentMethod(strings.TrimSpace(payload.Method)),
		Reference:  payload.Reference,
		Notes:      payload.Notes,
		ReceivedAt: receivedAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	payments, err := s.paymentSvc.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}
