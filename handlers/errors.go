package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"karyasiddhi-ai/services"

	"github.com/gin-gonic/gin"
)

// Every failure body is {"detail": message}.

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func validationError(c *gin.Context, err error) {
	abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	abortWithDetail(c, http.StatusInternalServerError, err.Error())
}

// scoreError keeps caller mistakes apart from server failures.
func scoreError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrFeatureDimension) {
		validationError(c, err)
		return
	}
	internalError(c, err)
}

// Recovery turns a handler panic into a 500 with the panic value as detail.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		abortWithDetail(c, http.StatusInternalServerError, fmt.Sprint(recovered))
	})
}
