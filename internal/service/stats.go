package service

import (
	"context"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
)

// ComputeStats folds tickets into per-event counts. A ticket counts as used
// once it has been scanned at least once, even if entries remain.
func ComputeStats(tickets []model.Ticket) model.Stats {
	var st model.Stats
	for _, t := range tickets {
		st.Total++
		if t.Used() {
			st.Used++
		} else {
			st.Pending++
		}
		if t.IsAssigned {
			st.Assigned++
		} else {
			st.Unassigned++
		}
	}
	return st
}

// Stats returns the ticket counts of an event, served from the stats cache
// when a fresh snapshot exists.
func (s *TicketService) Stats(ctx context.Context, eventID string) (model.Stats, error) {
	if err := s.ensureEvent(ctx, eventID); err != nil {
		return model.Stats{}, err
	}

	if s.opts.cache != nil {
		st, ok, err := s.opts.cache.Get(ctx, eventID)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("event_id", eventID).Warn("read stats cache")
		} else if ok {
			return st, nil
		}
	}

	tickets, err := s.listByEvent(ctx, eventID)
	if err != nil {
		return model.Stats{}, err
	}
	st := ComputeStats(tickets)

	if s.opts.cache != nil {
		cctx, cancel := detached(ctx)
		defer cancel()
		if err := s.opts.cache.Set(cctx, eventID, st); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("event_id", eventID).Warn("write stats cache")
		}
	}
	return st, nil
}
