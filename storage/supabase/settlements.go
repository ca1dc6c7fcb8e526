package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/google/uuid"
	"github.com/oriser/roomies/settlement"
)

const settlementsTable = "settlements"

// AddSettlements posts all rows in one request, so the pair is written by a single statement.
func (s *Store) AddSettlements(ctx context.Context, settlements ...*settlement.Settlement) (int, error) {
	if len(settlements) == 0 {
		return 0, nil
	}

	for _, st := range settlements {
		if st == nil {
			return 0, fmt.Errorf("nil settlement")
		}
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		if st.CreatedAt.IsZero() {
			st.CreatedAt = time.Now().UTC()
		}
	}

	body, err := json.Marshal(settlements)
	if err != nil {
		return 0, fmt.Errorf("marshal settlements: %w", err)
	}

	query := url.Values{"on_conflict": {"transaction_group_id,user_id"}}
	gc, err := s.do(ctx, "POST", settlementsTable, query, body, "resolution=ignore-duplicates,return=representation")
	if err != nil {
		return 0, fmt.Errorf("insert settlements: %w", err)
	}
	return len(children(gc)), nil
}

func (s *Store) listSettlements(ctx context.Context, query url.Values) ([]*settlement.Settlement, error) {
	query.Set("select", "*")
	gc, err := s.do(ctx, "GET", settlementsTable, query, nil, "")
	if err != nil {
		return nil, fmt.Errorf("select settlements: %w", err)
	}
	return parseSettlements(gc)
}

func (s *Store) ListSettlementsForUser(ctx context.Context, userID string) ([]*settlement.Settlement, error) {
	return s.listSettlements(ctx, url.Values{
		"user_id": {eq(userID)},
		"order":   {"created_at.desc,id.asc"},
	})
}

func (s *Store) ListSettlementsInGroup(ctx context.Context, groupID string) ([]*settlement.Settlement, error) {
	return s.listSettlements(ctx, url.Values{
		"transaction_group_id": {eq(groupID)},
		"order":                {"created_at.asc,id.asc"},
	})
}

func (s *Store) UpdateGroupStatus(ctx context.Context, groupID string, status settlement.Status, settledDate *time.Time) (int64, error) {
	patch := gabs.New()
	if _, err := patch.Set(string(status), "status"); err != nil {
		return 0, fmt.Errorf("set status: %w", err)
	}
	var settled interface{}
	if settledDate != nil {
		settled = settledDate.UTC().Format(time.RFC3339Nano)
	}
	if _, err := patch.Set(settled, "settled_date"); err != nil {
		return 0, fmt.Errorf("set settled date: %w", err)
	}

	gc, err := s.do(ctx, "PATCH", settlementsTable, url.Values{"transaction_group_id": {eq(groupID)}}, patch.Bytes(), "return=representation")
	if err != nil {
		return 0, fmt.Errorf("update settlement group: %w", err)
	}
	return int64(len(children(gc))), nil
}

func (s *Store) RemoveGroup(ctx context.Context, groupID string) (int64, error) {
	gc, err := s.do(ctx, "DELETE", settlementsTable, url.Values{"transaction_group_id": {eq(groupID)}}, nil, "return=representation")
	if err != nil {
		return 0, fmt.Errorf("delete settlement group: %w", err)
	}
	return int64(len(children(gc))), nil
}

func children(gc *gabs.Container) []*gabs.Container {
	if gc == nil {
		return nil
	}
	return gc.Children()
}

func parseSettlements(gc *gabs.Container) ([]*settlement.Settlement, error) {
	rows := children(gc)
	ret := make([]*settlement.Settlement, 0, len(rows))
	for _, row := range rows {
		st := &settlement.Settlement{}
		if err := json.Unmarshal(row.Bytes(), st); err != nil {
			return nil, fmt.Errorf("unmarshal settlement %s: %w", row.String(), err)
		}
		ret = append(ret, st)
	}
	return ret, nil
}
