package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"northstar/internal/coach"
	"northstar/internal/comb"
	"northstar/internal/logging"
	"northstar/internal/store"
)

const jsonContentType = "application/json; charset=utf-8"

// =============================================================================
// REQUEST TYPES
// =============================================================================

type recommendationsRequest struct {
	UserID   comb.Text     `json:"userId,omitempty"`
	Snapshot comb.Snapshot `json:"snapshot"`
	Limit    comb.Number   `json:"limit"`
}

type profileRequest struct {
	User              *coach.User    `json:"user,omitempty"`
	Insights          *comb.Result   `json:"insights,omitempty"`
	ComBInsights      *comb.Result   `json:"comBInsights,omitempty"`
	AccessiblePillars comb.TextList  `json:"accessiblePillars,omitempty"`
	Snapshot          *comb.Snapshot `json:"snapshot,omitempty"`
	Limit             comb.Number    `json:"limit"`
}

type profileBody struct {
	Profile *coach.Profile `json:"profile"`
}

// httpError carries a status code out of a compute function.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// computeFunc turns a compacted request body into a response payload.
type computeFunc func(st *engineState, c *gin.Context, body []byte) (interface{}, error)

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleRecommendations(c *gin.Context) {
	s.serve(c, func(st *engineState, _ *gin.Context, body []byte) (interface{}, error) {
		var req recommendationsRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, badRequest("invalid recommendations request: %v", err)
		}

		start := time.Now()
		res := st.scorer.Compute(req.Snapshot, comb.Options{Limit: s.limitFor(req.Limit)})
		elapsed := time.Since(start)
		s.metrics.observeCompute("recommendations", elapsed)

		logging.Audit(logging.AuditEvent{
			Type:     logging.AuditRecommendations,
			UserID:   req.UserID.Trim(),
			Success:  true,
			Duration: elapsed,
			Fields:   map[string]interface{}{"actions": len(res.RecommendedActions)},
		})

		if err := s.record(st.gen, req.UserID.Trim(), store.KindRecommendations, body, res); err != nil {
			return nil, err
		}
		return res, nil
	})
}

func (s *Server) handleProfile(c *gin.Context) {
	s.serve(c, func(st *engineState, _ *gin.Context, body []byte) (interface{}, error) {
		var req profileRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, badRequest("invalid profile request: %v", err)
		}

		start := time.Now()
		insights := req.Insights
		if insights == nil {
			insights = req.ComBInsights
		}
		if insights == nil && req.Snapshot != nil {
			res := st.scorer.Compute(*req.Snapshot, comb.Options{Limit: s.limitFor(req.Limit)})
			insights = &res
		}

		profile := st.builder.BuildProfile(coach.Input{
			User:              req.User,
			Insights:          insights,
			AccessiblePillars: req.AccessiblePillars,
		})
		elapsed := time.Since(start)
		s.metrics.observeCompute("profile", elapsed)

		userID := ""
		if req.User != nil {
			userID = req.User.ID.Trim()
		}
		ev := logging.AuditEvent{Type: logging.AuditProfileBuilt, UserID: userID, Success: true, Duration: elapsed}
		if profile == nil {
			ev.Type = logging.AuditProfileEmpty
			logging.Audit(ev)
			return profileBody{}, nil
		}
		ev.Fields = map[string]interface{}{"persona": profile.PersonaKey, "priorities": len(profile.PriorityPillars)}
		logging.Audit(ev)

		if err := s.record(st.gen, userID, store.KindProfile, body, profile); err != nil {
			return nil, err
		}
		return profileBody{Profile: profile}, nil
	})
}

func (s *Server) handleContext(c *gin.Context) {
	s.serve(c, func(st *engineState, _ *gin.Context, body []byte) (interface{}, error) {
		var req profileBody
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, badRequest("invalid context request: %v", err)
		}
		ctx := st.builder.BuildContext(req.Profile)
		if ctx == nil {
			return gin.H{"context": nil}, nil
		}
		return ctx, nil
	})
}

func (s *Server) handlePlan(c *gin.Context) {
	s.serve(c, func(st *engineState, c *gin.Context, body []byte) (interface{}, error) {
		var req profileBody
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, badRequest("invalid plan request: %v", err)
		}

		pillarID := c.Param("pillarId")
		plan := st.builder.PillarPlan(pillarID, req.Profile)
		logging.Audit(logging.AuditEvent{
			Type:    logging.AuditPlanResolved,
			Target:  pillarID,
			Success: plan != nil,
		})
		if plan == nil {
			return nil, &httpError{status: http.StatusNotFound, msg: fmt.Sprintf("no plan for pillar %q", pillarID)}
		}
		return plan, nil
	})
}

func (s *Server) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.Load().catalog)
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.state.Load()
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"uptime":            time.Since(s.started).Round(time.Second).String(),
		"catalogGeneration": st.gen,
		"cacheEntries":      s.cache.len(),
		"store":             s.store != nil,
	})
}

// =============================================================================
// PLUMBING
// =============================================================================

// serve reads and compacts the body, answers from the cache when possible,
// and otherwise runs fn against the current engine state.
func (s *Server) serve(c *gin.Context, fn computeFunc) {
	route := c.FullPath()

	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st := s.state.Load()
	key := cacheKey(route, c.Param("pillarId")+"@"+strconv.FormatUint(st.gen, 10), body)
	if out, ok := s.cache.get(key); ok {
		s.metrics.recordCache(route, true)
		logging.Audit(logging.AuditEvent{Type: logging.AuditCacheHit, Target: route, Success: true})
		c.Data(http.StatusOK, jsonContentType, out)
		return
	}
	if s.cache != nil {
		s.metrics.recordCache(route, false)
	}

	payload, err := fn(st, c, body)
	if err != nil {
		status := http.StatusInternalServerError
		if he, ok := err.(*httpError); ok {
			status = he.status
		} else {
			s.log.Error("%s failed: %v", route, err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	out, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("%s: failed to encode response: %v", route, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode response"})
		return
	}

	s.cache.put(key, out)
	c.Data(http.StatusOK, jsonContentType, out)
}

// readBody returns the request body compacted, so whitespace differences
// share a cache key. An empty body reads as {}.
func readBody(c *gin.Context) ([]byte, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return buf.Bytes(), nil
}

// limitFor returns the requested limit, or the server default when the
// request carries none.
func (s *Server) limitFor(requested comb.Number) int {
	if v, ok := requested.Float(); ok && int(v) != 0 {
		return int(v)
	}
	return s.limit
}

// record stores a run when a store is configured and the request names a user.
func (s *Server) record(gen uint64, userID string, kind store.Kind, input []byte, output interface{}) error {
	if s.store == nil || userID == "" {
		return nil
	}
	out, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to encode run output: %w", err)
	}
	run := &store.Run{UserID: userID, Kind: kind, Input: input, Output: out, CatalogGeneration: gen}
	if err := s.store.SaveRun(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	logging.Audit(logging.AuditEvent{Type: logging.AuditRunRecorded, UserID: userID, Target: run.ID, Success: true})
	return nil
}
