// Package intake is the write path for operator-submitted domains. It adds
// the domain to the registry and runs one synchronous check so the operator
// learns right away whether it is already blocked.
package intake

import (
	"context"

	"github.com/haukened/blockwatch/internal/watch/common/log"
	"github.com/haukened/blockwatch/internal/watch/domain"
)

// Registry is the subset of the domain registry intake writes to.
type Registry interface {
	AddDomain(list domain.List, raw string) (domain.Domain, error)
	MarkBlocked(d domain.Domain) bool
	Snapshot() domain.Snapshot
}

// Checker is the one-off block check run after an add.
type Checker interface {
	IsBlocked(ctx context.Context, d domain.Domain) bool
}

// Result describes a successful add.
type Result struct {
	Domain  domain.Domain `json:"domain"`
	List    domain.List   `json:"list"`
	Blocked bool          `json:"blocked"`
}

// Service adds domains and answers listing requests.
type Service struct {
	registry Registry
	checker  Checker
	logger   log.Logger
}

func New(registry Registry, checker Checker, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Service{registry: registry, checker: checker, logger: logger}
}

// Add normalizes raw, inserts it into list and checks it once. A domain the
// authority already blocks is marked so the periodic cycle skips it; no
// alert batch is produced for it.
func (s *Service) Add(ctx context.Context, list domain.List, raw string) (Result, error) {
	d, err := s.registry.AddDomain(list, raw)
	if err != nil {
		s.logger.Debug(map[string]any{
			"input": raw,
			"list":  string(list),
			"error": err,
		}, "domain rejected")
		return Result{}, err
	}

	res := Result{Domain: d, List: list}
	if s.checker != nil && s.checker.IsBlocked(ctx, d) {
		s.registry.MarkBlocked(d)
		res.Blocked = true
		s.logger.Warn(map[string]any{
			"domain": d.String(),
			"list":   string(list),
		}, "added domain is already blocked")
	}
	return res, nil
}

// Snapshot returns the current registry contents.
func (s *Service) Snapshot() domain.Snapshot {
	return s.registry.Snapshot()
}
