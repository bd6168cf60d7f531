package ops

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flaree/BallsDex-DiscordBot/internal/game"
)

// Server is the operator HTTP surface: spawn trigger diagnostics and the
// admin knobs that don't warrant a Discord round trip.
type Server struct {
	core *game.Core
	srv  *http.Server
}

func NewServer(core *game.Core, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{core: core}

	r.GET("/healthz", s.healthz)
	r.GET("/guilds/:id/spawn", s.guildSpawnState)
	r.POST("/admin/reload", s.reload)
	r.POST("/admin/guilds/:id/enabled", s.setEnabled)
	r.DELETE("/admin/sessions/:key", s.clearSession)

	s.srv = &http.Server{Addr: addr, Handler: r}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "balls": s.core.Catalog().Count()})
}

func (s *Server) guildSpawnState(c *gin.Context) {
	guildId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guild id"})
		return
	}
	snap, ok := s.core.ExplainGuildState(guildId)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no spawn state for this guild"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"guildId":     snap.GuildId,
		"accumulator": snap.Accumulator,
		"threshold":   snap.Threshold,
		"messages":    snap.Messages,
		"lastSpawn":   snap.LastSpawn,
		"summary":     snap.String(),
	})
}

func (s *Server) reload(c *gin.Context) {
	if err := s.core.LoadCaches(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}

func (s *Server) setEnabled(c *gin.Context) {
	guildId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guild id"})
		return
	}
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected {\"enabled\": bool}"})
		return
	}
	if err := s.core.AdminSetEnabled(c.Request.Context(), guildId, body.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"guildId": guildId, "enabled": body.Enabled})
}

func (s *Server) clearSession(c *gin.Context) {
	if !s.core.AdminClearSession(c.Param("key")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}
