package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warungpos/procure_backend/models"
)

func createInternalUsage(c *gin.Context) {
	var input models.NewInternalUsage
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	usage, err := models.CreateInternalUsage(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, usage)
}

func getInternalUsage(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	usage, err := models.GetInternalUsage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func listInternalUsages(c *gin.Context) {
	usages, err := models.GetInternalUsages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, usages)
}

func createInternalReturn(c *gin.Context) {
	var input models.NewInternalReturn
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	ret, err := models.CreateInternalReturn(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ret)
}

func getInternalReturn(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	ret, err := models.GetInternalReturn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

func listInternalReturns(c *gin.Context) {
	rets, err := models.GetInternalReturns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rets)
}
