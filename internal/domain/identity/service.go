package identity

import (
	"context"
	"errors"
	"strings"

	"siteledger/internal/auth"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, hash, err := s.Store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := auth.CheckPassword(hash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if user.Status != StatusActive {
		return User{}, ErrInactiveUser
	}
	return user, nil
}

// Create adds an account junior to the caller. Developers may create any
// role; everyone else only roles below their own. The new account reports to
// the caller unless a parent inside the caller's span is named.
func (s *Service) Create(ctx context.Context, caller UserContext, in CreateUserInput) (User, error) {
	if !ValidRole(in.Role) {
		return User{}, ErrInvalidRole
	}
	if caller.Role != RoleDeveloper && in.Role <= caller.Role {
		return User{}, ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return User{}, invalidError("name and email are required")
	}
	if len(in.Password) < 8 {
		return User{}, invalidError("password must be at least 8 characters")
	}
	if in.DailyWage.IsNegative() {
		return User{}, invalidError("daily wage cannot be negative")
	}

	parentID, err := s.resolveParent(ctx, caller, in)
	if err != nil {
		return User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}

	return s.Store.Create(ctx, User{
		OrgID:     caller.OrgID,
		ParentID:  parentID,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      in.Role,
		DailyWage: in.DailyWage,
		Status:    StatusActive,
	}, hash)
}

func (s *Service) resolveParent(ctx context.Context, caller UserContext, in CreateUserInput) (*string, error) {
	// Developers sit at the top of the tree and report to nobody.
	if in.Role == RoleDeveloper {
		return nil, nil
	}

	parentID := strings.TrimSpace(in.ParentID)
	if parentID == "" || parentID == caller.UserID {
		id := caller.UserID
		return &id, nil
	}

	parent, err := s.Store.GetByID(ctx, caller.OrgID, parentID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidParent
	}
	if err != nil {
		return nil, err
	}
	if parent.Role >= in.Role {
		return nil, ErrInvalidParent
	}
	if caller.Role != RoleDeveloper {
		within, err := s.withinSpan(ctx, caller, parentID)
		if err != nil {
			return nil, err
		}
		if !within {
			return nil, ErrInvalidParent
		}
	}
	return &parent.ID, nil
}

func (s *Service) Get(ctx context.Context, caller UserContext, id string) (User, error) {
	user, err := s.Store.GetByID(ctx, caller.OrgID, id)
	if err != nil {
		return User{}, err
	}
	visible, err := s.CanActOn(ctx, caller, id)
	if err != nil {
		return User{}, err
	}
	if !visible {
		return User{}, ErrForbidden
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, caller UserContext, filter ListFilter) ([]User, error) {
	if caller.Role == RoleDeveloper {
		return s.Store.List(ctx, caller.OrgID, filter)
	}

	ids, err := s.Store.SubordinateIDs(ctx, caller.OrgID, caller.UserID)
	if err != nil {
		return nil, err
	}
	ids = append(ids, caller.UserID)
	users, err := s.Store.ListByIDs(ctx, caller.OrgID, ids)
	if err != nil {
		return nil, err
	}

	filtered := users[:0]
	for _, u := range users {
		if filter.Role != 0 && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if filter.ParentID != "" && (u.ParentID == nil || *u.ParentID != filter.ParentID) {
			continue
		}
		filtered = append(filtered, u)
	}
	return filtered, nil
}

func (s *Service) Update(ctx context.Context, caller UserContext, id string, in UpdateUserInput) (User, error) {
	target, err := s.Store.GetByID(ctx, caller.OrgID, id)
	if err != nil {
		return User{}, err
	}

	selfUpdate := id == caller.UserID
	if !selfUpdate {
		manages, err := s.manages(ctx, caller, id)
		if err != nil {
			return User{}, err
		}
		if !manages {
			return User{}, ErrForbidden
		}
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		target.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		target.Phone = strings.TrimSpace(*in.Phone)
	}
	if selfUpdate && (in.DailyWage != nil || in.Status != nil || in.ParentID != nil) {
		return User{}, ErrForbidden
	}
	if in.DailyWage != nil {
		if in.DailyWage.IsNegative() {
			return User{}, invalidError("daily wage cannot be negative")
		}
		target.DailyWage = *in.DailyWage
	}
	if in.Status != nil {
		if *in.Status != StatusActive && *in.Status != StatusInactive {
			return User{}, invalidError("status must be active or inactive")
		}
		target.Status = *in.Status
	}
	if in.ParentID != nil {
		parentID, err := s.resolveParent(ctx, caller, CreateUserInput{Role: target.Role, ParentID: *in.ParentID})
		if err != nil {
			return User{}, err
		}
		target.ParentID = parentID
	}

	return s.Store.Update(ctx, target)
}

// Subordinates lists every user below userID in the reporting tree.
func (s *Service) Subordinates(ctx context.Context, caller UserContext, userID string) ([]User, error) {
	if userID == "" {
		userID = caller.UserID
	}
	allowed, err := s.CanActOn(ctx, caller, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	ids, err := s.Store.SubordinateIDs(ctx, caller.OrgID, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []User{}, nil
	}
	return s.Store.ListByIDs(ctx, caller.OrgID, ids)
}

// SubordinateIDSet materializes the caller's span for a single request.
func (s *Service) SubordinateIDSet(ctx context.Context, orgID, userID string) (map[string]struct{}, error) {
	ids, err := s.Store.SubordinateIDs(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// CanActOn reports whether the caller may operate on target's records:
// themselves, anyone below them, or anyone in the org for developers.
func (s *Service) CanActOn(ctx context.Context, caller UserContext, targetID string) (bool, error) {
	if targetID == caller.UserID {
		return true, nil
	}
	if caller.Role == RoleDeveloper {
		_, err := s.Store.GetByID(ctx, caller.OrgID, targetID)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return s.withinSpan(ctx, caller, targetID)
}

func (s *Service) manages(ctx context.Context, caller UserContext, targetID string) (bool, error) {
	if caller.Role == RoleDeveloper {
		return true, nil
	}
	return s.withinSpan(ctx, caller, targetID)
}

func (s *Service) withinSpan(ctx context.Context, caller UserContext, targetID string) (bool, error) {
	set, err := s.SubordinateIDSet(ctx, caller.OrgID, caller.UserID)
	if err != nil {
		return false, err
	}
	_, ok := set[targetID]
	return ok, nil
}
