package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type createDocumentPayload struct {
	ClientID     string `json:"client_id"`
	JobID        string `json:"job_id"`
	Notes        string `json:"notes"`
	ValidUntil   string `json:"valid_until"`
	DueDate      string `json:"due_date"`
	PaymentTerms string `json:"payment_terms"`

	DepositRequired bool   `json:"deposit_required"`
	DepositType     string `json:"deposit_type"`
	DepositValue    string `json:"deposit_value"`
}

func (s *Server) CreateQuote(c *gin.Context) {
	s.createDocument(c, documentdomain.KindQuote)
}

func (s *Server) CreateInvoice(c *gin.Context) {
	s.createDocument(c, documentdomain.KindInvoice)
}

func (s *Server) createDocument(c *gin.Context, kind documentdomain.DocumentKind) {
	var payload createDocumentPayload
	if err := c.BindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	clientID, err := snowflake.ParseString(strings.TrimSpace(payload.ClientID))
	if err != nil || clientID == 0 {
		AbortWithError(c, newValidationError("client_id", "invalid_client", "invalid client id"))
		return
	}
	jobID, err := parseOptionalSnowflakeID(payload.JobID)
	if err != nil {
		AbortWithError(c, newValidationError("job_id", "invalid_job", "invalid job id"))
		return
	}

	req := documentdomain.CreateDocumentRequest{
		Kind:     kind,
		ClientID: clientID,
		JobID:    jobID,
		Notes:    payload.Notes,
	}

	switch kind {
	case documentdomain.KindQuote:
		validUntil, err := parseOptionalTime("valid_until", payload.ValidUntil, true)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.ValidUntil = validUntil
		req.DepositRequired = payload.DepositRequired
		if payload.DepositRequired {
			req.DepositType = documentdomain.DepositType(strings.TrimSpace(payload.DepositType))
			value, err := parseMoney("deposit_value", payload.DepositValue)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			req.DepositValue = value
		}
	case documentdomain.KindInvoice:
		dueDate, err := parseOptionalTime("due_date", payload.DueDate, true)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.DueDate = dueDate
		req.PaymentTerms = payload.PaymentTerms
	}

	resp, err := s.documentSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetDocumentByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	detail, err := s.documentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) ListDocuments(c *gin.Context) {
	s.listDocuments(c, documentdomain.DocumentKind(strings.TrimSpace(c.Query("kind"))))
}

func (s *Server) ListQuotes(c *gin.Context) {
	s.listDocuments(c, documentdomain.KindQuote)
}

func (s *Server) ListInvoices(c *gin.Context) {
	s.listDocuments(c, documentdomain.KindInvoice)
}

func (s *Server) listDocuments(c *gin.Context, kind documentdomain.DocumentKind) {
	var page pagination.Pagination
	if err := c.BindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.documentSvc.List(c.Request.Context(), documentdomain.ListDocumentRequest{
		Pagination: page,
		Kind:       kind,
		Status:     documentdomain.DocumentStatus(strings.TrimSpace(c.Query("status"))),
		ClientID:   c.Query("client_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Documents,
		"page_info": resp.PageInfo,
	})
}

type lineItemPayload struct {
	ItemType    string `json:"item_type"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

func (p lineItemPayload) toSpec() (documentdomain.ItemSpec, error) {
	quantity, err := parseQuantity("quantity", p.Quantity)
	if err != nil {
		return documentdomain.ItemSpec{}, err
	}
	unitPrice, err := parseMoney("unit_price", p.UnitPrice)
	if err != nil {
		return documentdomain.ItemSpec{}, err
	}
	return documentdomain.ItemSpec{
		ItemType:    documentdomain.ItemType(strings.TrimSpace(p.ItemType)),
		Description: p.Description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}, nil
}

func (s *Server) AddLineItem(c *gin.Context) {
	var payload lineItemPayload
	if err := c.BindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	spec, err := payload.toSpec()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.documentSvc.AddLineItem(c.Request.Context(), c.Param("id"), spec)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

type lineItemUpdatePayload struct {
	ItemType    *string `json:"item_type"`
	Description *string `json:"description"`
	Quantity    *string `json:"quantity"`
	UnitPrice   *string `json:"unit_price"`
}

func (p lineItemUpdatePayload) toUpdate(id snowflake.ID) (documentdomain.ItemUpdateSpec, error) {
	update := documentdomain.ItemUpdateSpec{ID: id}
	if p.ItemType != nil {
		itemType := documentdomain.ItemType(strings.TrimSpace(*p.ItemType))
		update.ItemType = &itemType
	}
	update.Description = p.Description
	if p.Quantity != nil {
		quantity, err := parseQuantity("quantity", *p.Quantity)
		if err != nil {
			return documentdomain.ItemUpdateSpec{}, err
		}
		update.Quantity = &quantity
	}
	if p.UnitPrice != nil {
		unitPrice, err := parseMoney("unit_price", *p.UnitPrice)
		if err != nil {
			return documentdomain.ItemUpdateSpec{}, err
		}
		update.UnitPrice = &unitPrice
	}
	return update, nil
}

func (s *Server) UpdateLineItem(c *gin.Context) {
	itemID, err := snowflake.ParseString(strings.TrimSpace(c.Param("item_id")))
	if err != nil {
		AbortWithError(c, newValidationError("item_id", "invalid_id", "invalid id"))
		return
	}

	var payload lineItemUpdatePayload
	if err := c.BindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update, err := payload.toUpdate(itemID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.documentSvc.UpdateLineItem(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) RemoveLineItem(c *gin.Context) {
	if err := s.documentSvc.RemoveLineItem(c.Request.Context(), c.Param("id"), c.Param("item_id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type variationPayload struct {
	Decision string                 `json:"decision"`
	Add      []lineItemPayload      `json:"add"`
	Update   []variationUpdateEntry `json:"update"`
	Remove   []string               `json:"remove"`
}

type variationUpdateEntry struct {
	ID string `json:"id"`
	lineItemUpdatePayload
}

func (s *Server) ApplyVariation(c *gin.Context) {
	var payload variationPayload
	if err := c.BindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := documentdomain.VariationRequest{
		DocumentID: c.Param("id"),
		Decision:   documentdomain.VariationDecision(strings.TrimSpace(payload.Decision)),
	}

	for _, add := range payload.Add {
		spec, err := add.toSpec()
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Add = append(req.Add, spec)
	}
	for _, entry := range payload.Update {
		itemID, err := snowflake.ParseString(strings.TrimSpace(entry.ID))
		if err != nil {
			AbortWithError(c, newValidationError("update.id", "invalid_id", "invalid id"))
			return
		}
		update, err := entry.toUpdate(itemID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Update = append(req.Update, update)
	}
	for _, raw := range payload.Remove {
		itemID, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			AbortWithError(c, newValidationError("remove", "invalid_id", "invalid id"))
			return
		}
		req.Remove = append(req.Remove, itemID)
	}

	detail, err := s.documentSvc.ApplyVariation(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) SendDocument(c *gin.Context) {
	doc, err := s.documentSvc.Send(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

type acceptQuotePayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) AcceptQuote(c *gin.Context) {
	var payload acceptQuotePayload
	if err := c.BindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.documentSvc.AcceptQuote(c.Request.Context(), documentdomain.AcceptQuoteRequest{
		DocumentID: c.Param("id"),
		Name:       payload.Name,
		Email:      payload.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

type rejectQuotePayload struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectQuote(c *gin.Context) {
	var payload rejectQuotePayload
	if err := c.ShouldBindJSON(&payload); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.documentSvc.RejectQuote(c.Request.Context(), c.Param("id"), payload.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) MarkDepositPaid(c *gin.Context) {
	doc, err := s.documentSvc.MarkDepositPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	doc, err := s.documentSvc.CancelInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}
