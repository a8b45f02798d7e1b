package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"caseintake/internal/apiclient"
	"caseintake/internal/intake"
	"caseintake/internal/slots"
	"caseintake/internal/upload"
)

// presentError writes the response for err and reports whether there was one.
func presentError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var verr *intake.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": verr.Message, "details": verr.Field})
		return true
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"message": apiErr.Message, "details": err.Error()})
		return true
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, intake.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, slots.ErrInvalidSlot),
		errors.Is(err, upload.ErrUnsupportedFormat),
		errors.Is(err, intake.ErrUnknownField),
		errors.Is(err, intake.ErrInvalidValue):
		status = http.StatusBadRequest
	case errors.Is(err, intake.ErrInvalidTransition),
		errors.Is(err, intake.ErrSaveInProgress),
		errors.Is(err, slots.ErrSlotBusy),
		errors.Is(err, slots.ErrSlotInUse),
		errors.Is(err, slots.ErrSlotEmpty):
		status = http.StatusConflict
	}

	message := http.StatusText(status)
	if status != http.StatusInternalServerError {
		message = errors.UnwrapAll(err).Error()
	}
	c.JSON(status, gin.H{"message": message, "details": err.Error()})
	return true
}
