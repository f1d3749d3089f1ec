package httpservice

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBindJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name" validate:"required"`
	}

	bind := func(body string) (*httptest.ResponseRecorder, bool, payload) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		var p payload
		ok := BindJSON(c, &p)
		return w, ok, p
	}

	t.Run("Field rules are left to the consumer", func(t *testing.T) {
		w, ok, p := bind(`{}`)
		assert.True(t, ok)
		assert.Empty(t, p.Name)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		w, ok, _ := bind(`{"name":`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})
}
