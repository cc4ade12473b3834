package handlers

import (
	"net/http"

	"platewatch-go/internal/core/apperr"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// writeError bildet die Fehlerklassifizierung auf HTTP-Statuscodes ab.
// Speicherfehler werden geloggt und als InternalError nach außen gegeben,
// ohne Details preiszugeben.
func writeError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "ValidationError"})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": "NotFound"})
	case apperr.KindConstraint:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "ConstraintViolation"})
	default:
		log.Errorf("Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "kind": "InternalError"})
	}
}
