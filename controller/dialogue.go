package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dialogos/platform"
	"dialogos/service"
)

var logger = platform.Logger

// DialogueController ...
type DialogueController struct {
	Service *service.DialogueService
}

// Exchange handles POST /api/dialogue for guests and logged-in users alike.
func (ctrl DialogueController) Exchange(c *gin.Context) {
	identity := IdentityFrom(c)
	if identity != nil {
		logger.Infof("[%s] Dialogue request from user %s", c.GetString("requestId"), identity.Subject)
	} else {
		logger.Infof("[%s] Dialogue request from guest", c.GetString("requestId"))
	}

	var req service.DialogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warnf("[%s] Invalid request body, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON request body"})
		return
	}

	result, err := ctrl.Service.Exchange(c.Request.Context(), identity, req, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	payload := gin.H{"response": result.Response}
	if result.ConversationID != nil {
		payload["conversation_id"] = *result.ConversationID
		payload["persona_id"] = result.PersonaID
	}
	c.JSON(http.StatusOK, payload)
}
