package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dialogos/service"
)

// IdentityFrom pulls the identity the auth middleware resolved, nil for
// guests.
func IdentityFrom(c *gin.Context) *service.Identity {
	v, ok := c.Get("identity")
	if !ok {
		return nil
	}
	identity, _ := v.(*service.Identity)
	return identity
}

// respondError maps service error kinds onto HTTP statuses. The bodies are
// fixed strings: collaborator errors and stack detail stay in the logs.
func respondError(c *gin.Context, err error) {
	requestId := c.GetString("requestId")
	switch {
	case errors.Is(err, service.ErrBadRequest):
		logger.Warnf("[%s] Bad request: %s", requestId, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid 'history' list in request body"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required: Invalid or missing token."})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Email verification required to access chat history."})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found or access denied."})
	case errors.Is(err, service.ErrUpstream):
		logger.Errorf("[%s] Upstream failure: %s", requestId, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Error communicating with AI service."})
	default:
		logger.Errorf("[%s] Internal error: %s", requestId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred"})
	}
}
