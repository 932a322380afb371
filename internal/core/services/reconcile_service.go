package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// reconcileConcurrency bounds the transactions a reconciliation keeps open.
const reconcileConcurrency = 8

// reconcileService recomputes every denormalized counter from the action log.
// It repairs counters written before the log existed or by manual edits.
type reconcileService struct {
	tx       ports.Transactor
	users    ports.UserRepository
	polls    ports.PollRepository
	counters ports.CounterService
	log      *logrus.Entry

	concurrency int
}

func NewReconcileService(tx ports.Transactor, users ports.UserRepository, polls ports.PollRepository, counters ports.CounterService, logger *logrus.Logger) ports.ReconcileService {
	return &reconcileService{
		tx:       tx,
		users:    users,
		polls:    polls,
		counters: counters,
		log:      logger.WithField("component", "reconcile_service"),

		concurrency: reconcileConcurrency,
	}
}

func (s *reconcileService) ReconcileAll(ctx context.Context) error {
	userIDs, err := s.users.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch all users: %w", err)
	}
	pollIDs, err := s.polls.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch all polls: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range userIDs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := s.tx.WithinTx(gctx, func(ctx context.Context) error {
				if err := s.counters.Recount(ctx, id, domain.ActionCreated); err != nil {
					return err
				}
				return s.counters.Recount(ctx, id, domain.ActionVoted)
			})
			if err != nil {
				return fmt.Errorf("failed to reconcile user %d: %w", id, err)
			}
			return nil
		})
	}

	for _, id := range pollIDs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := s.tx.WithinTx(gctx, func(ctx context.Context) error {
				return s.counters.RecountParticipants(ctx, id)
			})
			if err != nil {
				return fmt.Errorf("failed to reconcile poll %d: %w", id, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"users": len(userIDs), "polls": len(pollIDs)}).Info("counters reconciled")
	return nil
}
