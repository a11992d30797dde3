package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warungpos/procure_backend/models"
)

func createStockOpname(c *gin.Context) {
	var input models.NewStockOpname
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	opname, err := models.CreateStockOpname(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, opname)
}

func getStockOpname(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	opname, err := models.GetStockOpname(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, opname)
}

func listStockOpnames(c *gin.Context) {
	var mode *models.StockOpnameMode
	if q := c.Query("mode"); q != "" {
		m := models.StockOpnameMode(q)
		mode = &m
	}
	opnames, err := models.GetStockOpnames(c.Request.Context(), mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, opnames)
}
