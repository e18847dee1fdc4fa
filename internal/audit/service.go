// Package audit exposes the read side of the impersonation log: paged
// browsing, an overview of live sessions, and CSV export for compliance
// reviews.
package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fleetdesk/fleetdesk/internal/impersonation"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Repository is the read side of the impersonation store.
type Repository interface {
	List(ctx context.Context, f impersonation.Filter) ([]impersonation.Record, int, error)
	ListOpen(ctx context.Context) ([]impersonation.Record, error)
}

// Filters narrows the timeline. Zero values match everything.
type Filters struct {
	AdminID  int64
	TargetID int64
	Status   impersonation.Status
	Page     int
	PageSize int
}

// PagingInfo carries pagination state for the timeline.
type PagingInfo struct {
	Page     int
	PageSize int
	Total    int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result wraps a timeline page with paging information.
type Result struct {
	Records []impersonation.Record
	Paging  PagingInfo
}

// Overview summarizes the log for the console dashboard.
type Overview struct {
	OpenSessions []impersonation.Record
	TotalOpen    int
	TotalClosed  int
}

// Service coordinates audit log reads.
type Service struct {
	repo Repository
}

// NewService constructs the audit read service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of records, newest first.
func (s *Service) Timeline(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	records, total, err := s.repo.List(ctx, impersonation.Filter{
		AdminID:  filters.AdminID,
		TargetID: filters.TargetID,
		Status:   filters.Status,
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	})
	if err != nil {
		return Result{}, err
	}

	paging := PagingInfo{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasNext:  page*pageSize < total,
	}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if paging.HasNext {
		paging.NextPage = page + 1
	}
	return Result{Records: records, Paging: paging}, nil
}

// Summary fetches the live-session list and the closed-record count in
// parallel.
func (s *Service) Summary(ctx context.Context) (Overview, error) {
	if s.repo == nil {
		return Overview{}, fmt.Errorf("audit: repository not configured")
	}

	var (
		open        []impersonation.Record
		totalClosed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		open, err = s.repo.ListOpen(gctx)
		return err
	})
	g.Go(func() error {
		_, total, err := s.repo.List(gctx, impersonation.Filter{Status: impersonation.StatusClosed, Limit: 1})
		totalClosed = total
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return Overview{OpenSessions: open, TotalOpen: len(open), TotalClosed: totalClosed}, nil
}

// Export renders every matching record as CSV, one row per record with
// actions flattened into a single column.
func (s *Service) Export(ctx context.Context, filters Filters) ([]byte, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	records, _, err := s.repo.List(ctx, impersonation.Filter{
		AdminID:  filters.AdminID,
		TargetID: filters.TargetID,
		Status:   filters.Status,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"record_id", "admin_id", "admin_name", "target_id", "target_name", "origin_ip", "started_at", "ended_at", "duration_minutes", "actions"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, rec := range records {
		endedAt := ""
		if rec.EndedAt != nil {
			endedAt = rec.EndedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			rec.ID.String(),
			strconv.FormatInt(rec.AdminID, 10),
			rec.AdminName,
			strconv.FormatInt(rec.TargetID, 10),
			rec.TargetName,
			rec.OriginIP,
			rec.StartedAt.UTC().Format(time.RFC3339),
			endedAt,
			strconv.FormatInt(rec.DurationMinutes, 10),
			flattenActions(rec.Actions),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flattenActions(actions []impersonation.Action) string {
	if len(actions) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for i, a := range actions {
		if i > 0 {
			buf.WriteString("; ")
		}
		buf.WriteString(a.At.UTC().Format(time.RFC3339))
		buf.WriteString(" ")
		buf.WriteString(a.Description)
	}
	return buf.String()
}
