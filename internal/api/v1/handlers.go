// Package v1 thinly translates HTTP requests into resolver calls and
// resolver results into transport-level responses.
package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloudshipai/gitconfd/internal/materializer"
	"github.com/cloudshipai/gitconfd/internal/materializer/resolver"
	"github.com/cloudshipai/gitconfd/internal/render"
)

// Handlers holds nothing beyond the resolver handle and the strict
// rendering flag; every operation is a thin translation to Resolver.
type Handlers struct {
	resolver *resolver.Resolver
	strict   bool
}

// New builds Handlers around res.
func New(res *resolver.Resolver, strict bool) *Handlers {
	return &Handlers{resolver: res, strict: strict}
}

// RegisterRoutes attaches the request surface's routes to router.
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	router.GET("/ok", h.healthCheck)
	router.GET("/envs/:sha", h.listEnvironments)
	router.GET("/config/:sha/:env", h.getEnvironment)
	router.POST("/transform/:sha/:env", h.transformEnv)
	router.POST("/transform/:sha", h.legacyTransformAll)
	router.GET("/heads/:branch", h.branchHead)
}

func (h *Handlers) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

type envDescriptionResponse struct {
	Name string `json:"Name"`
	Type string `json:"Type,omitempty"`
}

func (h *Handlers) listEnvironments(c *gin.Context) {
	sha := shaParam(c.Param("sha"))

	descriptions, err := h.resolver.ResolveList(sha)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]envDescriptionResponse, len(descriptions))
	for i, d := range descriptions {
		out[i] = envDescriptionResponse{Name: d.Name, Type: d.Type}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) getEnvironment(c *gin.Context) {
	sha := shaParam(c.Param("sha"))
	env := c.Param("env")

	result, err := h.resolver.Resolve(sha, env)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) transformEnv(c *gin.Context) {
	sha := shaParam(c.Param("sha"))
	env := c.Param("env")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, materializer.Wrap(materializer.ErrInternal, "api.transformEnv", err))
		return
	}

	environment, err := h.resolver.Resolve(sha, env)
	if err != nil {
		respondError(c, err)
		return
	}

	rendered, err := render.Render(string(body), environment, h.strict)
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, "%s", rendered)
}

// legacyTransformAll is the superseded POST /transform/<sha>?filename=...
// route, kept so old clients get a clear signal instead of a 404.
func (h *Handlers) legacyTransformAll(c *gin.Context) {
	c.Status(http.StatusGone)
}

type shaResponse struct {
	HeadSha    string `json:"headSha"`
	BranchName string `json:"branchName"`
}

func (h *Handlers) branchHead(c *gin.Context) {
	branch := c.Param("branch")
	remote := c.Query("remote_name")

	sha, err := h.resolver.BranchHead(branch, remote)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shaResponse{HeadSha: sha, BranchName: branch})
}

// shaParam truncates a commit identifier to its first seven characters;
// everything after the seventh is ignored per the external interfaces.
func shaParam(raw string) string {
	if len(raw) > 7 {
		return raw[:7]
	}
	return raw
}

func respondError(c *gin.Context, err error) {
	c.JSON(materializer.HTTPStatus(err), gin.H{"error": causeOnly(err).Error()})
}

// causeOnly strips everything but the sentinel kind before a message
// reaches a client, so credentials or repository paths embedded in an
// underlying git error never leak.
func causeOnly(err error) error {
	if me, ok := err.(*materializer.Error); ok {
		return me.Kind
	}
	return err
}
