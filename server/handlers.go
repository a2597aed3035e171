package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/filter"
)

type healthResponse struct {
	Status   string        `json:"status"`
	Snapshot *engine.Stats `json:"snapshot,omitempty"`
}

type recommendResponse struct {
	UserID          int64                    `json:"user_id"`
	Version         uint64                   `json:"version"`
	Recommendations []catalog.Recommendation `json:"recommendations"`
}

type similarResponse struct {
	MovieID int64                    `json:"movie_id"`
	Title   string                   `json:"title"`
	Version uint64                   `json:"version"`
	Similar []catalog.Recommendation `json:"similar"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot()
	if err != nil {
		respondJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "not_ready"})
		return
	}
	st := snap.Stats()
	respondJSON(w, r, http.StatusOK, healthResponse{Status: "ok", Snapshot: &st})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "userID")
	if !ok {
		return
	}
	topN, ok := s.topN(w, r)
	if !ok {
		return
	}
	snap, err := s.engine.Snapshot()
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	// 同一个快照上计算，保证 version 与结果一致
	start := time.Now()
	scored, err := snap.RecommendForUser(userID, topN)
	s.engine.Metrics().ObserveRequest("recommend", time.Since(start), err)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, recommendResponse{
		UserID:          userID,
		Version:         snap.Version,
		Recommendations: s.catalog.Resolve(scored),
	})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	movieID, ok := s.pathID(w, r, "movieID")
	if !ok {
		return
	}
	topN, ok := s.topN(w, r)
	if !ok {
		return
	}
	snap, err := s.engine.Snapshot()
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	start := time.Now()
	scored, err := snap.SimilarItems(movieID, topN)
	s.engine.Metrics().ObserveRequest("similar", time.Since(start), err)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, similarResponse{
		MovieID: movieID,
		Title:   s.catalog.Title(movieID),
		Version: snap.Version,
		Similar: s.catalog.Resolve(scored),
	})
}

// handleFeed 运行配置的 pipeline（多路召回 -> 过滤 -> 截断 -> 回填标题）。
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		respondError(w, r, http.StatusNotImplemented, core.ErrorCodeNotSupported, "feed pipeline is not configured")
		return
	}
	userID, ok := s.pathID(w, r, "userID")
	if !ok {
		return
	}
	topN, ok := s.topN(w, r)
	if !ok {
		return
	}
	exclude, err := parseIDList(r.URL.Query().Get("exclude"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, err.Error())
		return
	}
	snap, err := s.engine.Snapshot()
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if !snap.HasUser(userID) {
		respondDomainError(w, r, core.NewUnknownEntityError(core.ModuleRecall, core.EntityUser, userID))
		return
	}

	if topN == 0 {
		respondJSON(w, r, http.StatusOK, recommendResponse{
			UserID:          userID,
			Version:         snap.Version,
			Recommendations: []catalog.Recommendation{},
		})
		return
	}
	rctx := &core.RecommendContext{
		UserID:  userID,
		HasUser: true,
		Scene:   "feed",
		TopN:    topN,
		Params:  map[string]any{filter.ParamExclude: exclude},
	}
	start := time.Now()
	items, err := s.feed.Run(r.Context(), rctx, nil)
	s.engine.Metrics().ObserveRequest("feed", time.Since(start), err)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if len(items) > topN {
		items = items[:topN]
	}
	respondJSON(w, r, http.StatusOK, recommendResponse{
		UserID:          userID,
		Version:         snap.Version,
		Recommendations: s.catalog.ResolveItems(items),
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Rebuild(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, snap.Stats())
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, fmt.Sprintf("invalid %s %q", name, raw))
		return 0, false
	}
	return id, true
}

// topN 解析 top_n 查询参数。缺省时填入 engine.default_top_n；显式的 0 原样返回，结果为空。
func (s *Server) topN(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("top_n")
	if raw == "" {
		return s.engine.Config().DefaultTopN, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || (s.cfg.MaxTopN > 0 && n > s.cfg.MaxTopN) {
		respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput,
			fmt.Sprintf("top_n must be an integer in [0, %d], got %q", s.cfg.MaxTopN, raw))
		return 0, false
	}
	return n, true
}

func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in exclude", p)
		}
		out = append(out, id)
	}
	return out, nil
}
