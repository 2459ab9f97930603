package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/histochat/backend/internal/service"
)

// CharacterController serves the static persona catalog
type CharacterController struct {
	characters *service.CharacterService
}

// NewCharacterController creates a character controller
func NewCharacterController(characters *service.CharacterService) *CharacterController {
	return &CharacterController{characters: characters}
}

// RegisterRoutesV1 registers character routes on the versioned group
func (c *CharacterController) RegisterRoutesV1(group *gin.RouterGroup) {
	characters := group.Group("/characters")
	{
		characters.GET("", c.ListCharacters)
		characters.GET("/categories", c.ListCategories)
		characters.GET("/:id", c.GetCharacter)
	}
}

// ListCharacters returns every loaded persona
func (c *CharacterController) ListCharacters(ctx *gin.Context) {
	all := c.characters.GetAll()
	ctx.JSON(http.StatusOK, gin.H{
		"characters": all,
		"count":      len(all),
	})
}

// GetCharacter returns one persona by id
func (c *CharacterController) GetCharacter(ctx *gin.Context) {
	id := ctx.Param("id")
	character, ok := c.characters.Get(id)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Character not found"})
		return
	}
	ctx.JSON(http.StatusOK, character)
}

// ListCategories returns the category-to-ids grouping, if one is configured
func (c *CharacterController) ListCategories(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"categories": c.characters.Categories()})
}
