package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adsync/backend/internal/interfaces/http/dto"
)

func setupSystemHandler() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSystemHandler()

	router := gin.New()
	router.GET("/system/info", h.GetSystemInfo)
	router.GET("/ping", h.Ping)
	return router
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	router := setupSystemHandler()

	w := doJSON(router, "GET", "/system/info", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "AdSync Backend API", data["name"])
	assert.NotEmpty(t, data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	router := setupSystemHandler()

	w := doJSON(router, "GET", "/ping", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "pong", data["message"])
	assert.NotEmpty(t, data["timestamp"])
}
