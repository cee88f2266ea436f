package http

import (
	"bytes"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/trading-services/internal/models"
	"github.com/example/trading-services/internal/store"
)

// UserServer serves the read-only user document.
type UserServer struct {
	R      *gin.Engine
	Logger *zap.Logger

	users map[string]models.User
	all   []byte
}

// NewUserServer takes the users in document order; GET /users returns them
// in that order.
func NewUserServer(keys []string, users map[string]models.User, logger *zap.Logger, opts Options) (*UserServer, error) {
	if users == nil {
		users = map[string]models.User{}
	}
	var buf bytes.Buffer
	if err := store.EncodeDocument(&buf, keys, users); err != nil {
		return nil, err
	}

	s := &UserServer{R: newEngine(logger, opts), Logger: logger, users: users, all: buf.Bytes()}

	s.R.GET("/", func(cn *gin.Context) { cn.JSON(http.StatusOK, gin.H{"message": "User Service API"}) })
	s.R.GET("/users", s.listUsers)
	s.R.GET("/users/:id", s.getUser)
	return s, nil
}

func (s *UserServer) listUsers(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", s.all)
}

func (s *UserServer) getUser(c *gin.Context) {
	id := c.Param("id")
	u, ok := s.users[id]
	if !ok {
		s.Logger.Warn("User not found", zap.String("user_id", id))
		c.JSON(http.StatusNotFound, apiError{Error: "user not found"})
		return
	}
	s.Logger.Info("User retrieved", zap.String("user_id", id))
	c.Data(http.StatusOK, "application/json; charset=utf-8", u)
}
