package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dialogos/service"
)

// PersonaController ...
type PersonaController struct {
	Registry *service.PersonaRegistry
}

// List handles GET /api/personas: the selectable personas plus which one is
// the default, for the clients' selection screen.
func (ctrl PersonaController) List(c *gin.Context) {
	personas := make([]gin.H, 0)
	for _, p := range ctrl.Registry.List() {
		personas = append(personas, gin.H{
			"id":       p.ID,
			"name":     p.Name,
			"greeting": p.Greeting,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"personas":   personas,
		"default_id": ctrl.Registry.DefaultID(),
	})
}
