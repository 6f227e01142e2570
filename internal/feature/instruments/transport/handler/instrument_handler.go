package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrade/internal/feature/instruments/domain/entity"
	"fintrade/internal/feature/instruments/transport/http/dto"
)

// InstrumentUsecase is the part of the catalog the handler needs.
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type InstrumentUsecase interface {
	ListActiveInstruments(ctx context.Context) ([]entity.Instrument, error)
}

// InstrumentHandler serves the instrument catalog.
type InstrumentHandler struct {
	uc InstrumentUsecase
}

// NewInstrumentHandler creates a new InstrumentHandler.
func NewInstrumentHandler(uc InstrumentUsecase) *InstrumentHandler {
	return &InstrumentHandler{uc: uc}
}

// List returns the active instruments. A usecase error yields 500.
func (h *InstrumentHandler) List(c *gin.Context) {
	instruments, err := h.uc.ListActiveInstruments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]dto.InstrumentItem, 0, len(instruments))
	for _, in := range instruments {
		out = append(out, dto.InstrumentItem{
			Symbol:      in.Symbol,
			CompanyName: in.CompanyName,
			Sector:      in.Sector,
			Exchange:    in.Exchange,
		})
	}
	c.JSON(http.StatusOK, out)
}
