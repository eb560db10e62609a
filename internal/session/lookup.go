package session

import (
	"context"
	"errors"
	"fmt"

	"aram-scrim/internal/domain"

	"golang.org/x/sync/errgroup"
)

func lookupErr(ref string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrLookupTimeout, ref, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrLookupFailed, ref, err)
}

// await runs fn and returns its result, or a lookup timeout as soon as ctx is
// done. A collaborator that ignores ctx keeps running in the background; its
// outputs must not be read unless await returned nil.
func await(ctx context.Context, ref string, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return lookupErr(ref, ctx.Err())
		}
		return nil
	case <-ctx.Done():
		return lookupErr(ref, ctx.Err())
	}
}

// admit checks eligibility and fetches the profile of a joining player in
// parallel. An ineligible player is reported as such even when the profile
// lookup failed.
func (m *Manager) admit(ctx context.Context, ref string) (domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.LookupTimeout)
	defer cancel()

	var (
		eligible   bool
		profile    domain.Profile
		profileErr error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		eligible, err = m.membership.IsEligible(gCtx, ref)
		return err
	})
	g.Go(func() error {
		profile, profileErr = m.membership.Profile(gCtx, ref)
		return nil
	})

	err := await(ctx, ref, func() error {
		if err := g.Wait(); err != nil {
			return lookupErr(ref, err)
		}
		return nil
	})
	if err != nil {
		return domain.Profile{}, err
	}
	if !eligible {
		return domain.Profile{}, fmt.Errorf("%w: %s", ErrPlayerNotEligible, ref)
	}
	if profileErr != nil {
		return domain.Profile{}, lookupErr(ref, profileErr)
	}
	return profile, nil
}

// profiles returns a profile for every ref, in order. Entries present in
// cached are reused; the rest are fetched concurrently under one timeout.
func (m *Manager) profiles(ctx context.Context, refs []string, cached map[string]domain.Profile) ([]domain.Profile, error) {
	out := make([]domain.Profile, len(refs))

	ctx, cancel := context.WithTimeout(ctx, m.opts.LookupTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		if p, ok := cached[ref]; ok {
			out[i] = p
			continue
		}
		g.Go(func() error {
			p, err := m.membership.Profile(gCtx, ref)
			if err != nil {
				return lookupErr(ref, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := await(ctx, "roster", g.Wait); err != nil {
		return nil, err
	}
	return out, nil
}
