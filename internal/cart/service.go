package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/medhelper/labcart/internal/cache"
	"github.com/medhelper/labcart/internal/domain"
)

type Repository interface {
	GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error)
	ListLines(ctx context.Context, cartID int64) ([]domain.CartLine, error)
	UpsertLine(ctx context.Context, cartID int64, add domain.LineAddition) (*domain.CartLine, error)
	FindLineForUser(ctx context.Context, lineID, userID int64) (*domain.CartLine, error)
	UpdateLineForUser(ctx context.Context, userID int64, line *domain.CartLine) error
	DeleteLineForUser(ctx context.Context, lineID, userID int64) error
}

type Catalog interface {
	GetAnalysis(ctx context.Context, id int64) (*domain.Analysis, error)
	GetAnalyses(ctx context.Context, ids []int64) (map[int64]*domain.Analysis, error)
}

type Service struct {
	repo    Repository
	catalog Catalog
	cache   cache.CartCache
	sfg     singleflight.Group // collapses concurrent misses for one user
	log     *slog.Logger
}

func NewService(repo Repository, catalog Catalog, c cache.CartCache, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		cache:   c,
		log:     log,
	}
}

type AddItemInput struct {
	AnalysisID    int64
	Quantity      int
	ScheduledDate *domain.Date
	ScheduledTime *domain.TimeOfDay
}

// UpdateItemInput fields left unset keep the stored value; a set field with
// a nil Value clears it. Quantity cannot be cleared.
type UpdateItemInput struct {
	Quantity      domain.Optional[int]
	ScheduledDate domain.Optional[domain.Date]
	ScheduledTime domain.Optional[domain.TimeOfDay]
}

// View is a cart priced against the current catalog.
type View struct {
	Cart  *domain.Cart
	Items []domain.PricedLine
	Total decimal.Decimal
}

// GetCart returns the user's cart with its lines, creating it if needed.
func (s *Service) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		c, err := s.cache.Get(ctx, userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cart cache get failed", "user_id", userID, "error", err)
		}

		// the version is read before the store so a write that commits
		// while we load keeps our stale copy out of the cache
		version, verErr := s.cache.Version(ctx, userID)

		c, err = s.repo.GetOrCreateCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		lines, err := s.repo.ListLines(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.Lines = lines

		if verErr != nil {
			return c, nil
		}
		stored, err := s.cache.StoreIfCurrent(ctx, userID, version, c)
		if err != nil {
			s.log.WarnContext(ctx, "cart cache store failed", "user_id", userID, "error", err)
		} else if !stored {
			s.log.DebugContext(ctx, "cart changed while loading, not cached", "user_id", userID)
		}

		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return v.(*domain.Cart), nil
}

// AddItem merges the analysis into the cart: an existing line gets its
// quantity increased and any supplied schedule part overwritten.
func (s *Service) AddItem(ctx context.Context, userID int64, in AddItemInput) (*domain.CartLine, error) {
	if in.Quantity < 1 {
		return nil, domain.NewValidationError("quantity", "must be at least 1")
	}
	if _, err := s.catalog.GetAnalysis(ctx, in.AnalysisID); err != nil {
		return nil, err
	}

	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	line, err := s.repo.UpsertLine(ctx, c.ID, domain.LineAddition{
		AnalysisID:    in.AnalysisID,
		Quantity:      in.Quantity,
		ScheduledDate: in.ScheduledDate,
		ScheduledTime: in.ScheduledTime,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "add cart item failed", "user_id", userID, "error", err)
		return nil, err
	}

	s.Invalidate(userID)
	return line, nil
}

func (s *Service) UpdateItem(ctx context.Context, userID, lineID int64, in UpdateItemInput) (*domain.CartLine, error) {
	if in.Quantity.Set && (in.Quantity.Value == nil || *in.Quantity.Value < 1) {
		return nil, domain.NewValidationError("quantity", "must be at least 1")
	}

	line, err := s.repo.FindLineForUser(ctx, lineID, userID)
	if err != nil {
		return nil, err
	}

	if in.Quantity.Set {
		line.Quantity = *in.Quantity.Value
	}
	if in.ScheduledDate.Set {
		line.ScheduledDate = in.ScheduledDate.Value
	}
	if in.ScheduledTime.Set {
		line.ScheduledTime = in.ScheduledTime.Value
	}

	if err := s.repo.UpdateLineForUser(ctx, userID, line); err != nil {
		s.log.ErrorContext(ctx, "update cart item failed", "user_id", userID, "line_id", lineID, "error", err)
		return nil, err
	}

	s.Invalidate(userID)
	return line, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, lineID int64) error {
	if err := s.repo.DeleteLineForUser(ctx, lineID, userID); err != nil {
		return err
	}
	s.Invalidate(userID)
	return nil
}

// Price resolves every line against the catalog.
func (s *Service) Price(ctx context.Context, lines []domain.CartLine) ([]domain.PricedLine, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.AnalysisID)
	}
	analyses, err := s.catalog.GetAnalyses(ctx, ids)
	if err != nil {
		return nil, err
	}

	priced := make([]domain.PricedLine, 0, len(lines))
	for _, l := range lines {
		priced = append(priced, domain.PricedLine{Line: l, Analysis: *analyses[l.AnalysisID]})
	}
	return priced, nil
}

func (s *Service) TotalPrice(ctx context.Context, c *domain.Cart) (decimal.Decimal, error) {
	if c.IsEmpty() {
		return decimal.Zero, nil
	}
	priced, err := s.Price(ctx, c.Lines)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.TotalPrice(priced), nil
}

func (s *Service) View(ctx context.Context, userID int64) (*View, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	priced, err := s.Price(ctx, c.Lines)
	if err != nil {
		return nil, err
	}
	return &View{Cart: c, Items: priced, Total: domain.TotalPrice(priced)}, nil
}

// Invalidate drops the cached cart after a mutation.
func (s *Service) Invalidate(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("cart cache invalidate failed", "user_id", userID, "error", err)
	}
}
