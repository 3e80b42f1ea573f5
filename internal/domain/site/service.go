package site

import (
	"context"
	"strings"

	"siteledger/internal/domain/identity"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

type CreateInput struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type UpdateInput struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Status   *string `json:"status"`
}

func (s *Service) Create(ctx context.Context, caller identity.UserContext, in CreateInput) (Site, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Site{}, invalidError("site name is required")
	}
	return s.Store.Create(ctx, Site{
		OrgID:     caller.OrgID,
		Name:      name,
		Location:  strings.TrimSpace(in.Location),
		Status:    StatusActive,
		CreatedBy: caller.UserID,
	})
}

func (s *Service) Get(ctx context.Context, caller identity.UserContext, id string) (Site, error) {
	return s.Store.Get(ctx, caller.OrgID, id)
}

func (s *Service) List(ctx context.Context, caller identity.UserContext, status string) ([]Site, error) {
	return s.Store.List(ctx, caller.OrgID, status)
}

func (s *Service) Update(ctx context.Context, caller identity.UserContext, id string, in UpdateInput) (Site, error) {
	st, err := s.Store.Get(ctx, caller.OrgID, id)
	if err != nil {
		return Site{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		st.Name = strings.TrimSpace(*in.Name)
	}
	if in.Location != nil {
		st.Location = strings.TrimSpace(*in.Location)
	}
	if in.Status != nil {
		if *in.Status != StatusActive && *in.Status != StatusArchived {
			return Site{}, invalidError("status must be active or archived")
		}
		st.Status = *in.Status
	}
	return s.Store.Update(ctx, st)
}

func (s *Service) AddMember(ctx context.Context, caller identity.UserContext, siteID, userID string) error {
	return s.Store.AddMember(ctx, caller.OrgID, siteID, userID)
}

func (s *Service) RemoveMember(ctx context.Context, caller identity.UserContext, siteID, userID string) error {
	return s.Store.RemoveMember(ctx, caller.OrgID, siteID, userID)
}

func (s *Service) Members(ctx context.Context, caller identity.UserContext, siteID string) ([]Member, error) {
	return s.Store.Members(ctx, caller.OrgID, siteID)
}
