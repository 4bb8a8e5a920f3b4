package store

import (
	"context"

	"opsmap/internal/domain"
)

type PersonInput struct {
	Name   string
	Email  string
	RoleID *string
}

// PersonPatch updates a person. An empty RoleID clears the role.
type PersonPatch struct {
	Name   *string
	Email  *string
	RoleID *string
}

func (s *Store) AddPerson(ctx context.Context, in PersonInput) (domain.Person, error) {
	name, err := requireText("person name", in.Name)
	if err != nil {
		return domain.Person{}, err
	}
	var out domain.Person
	err = s.mutate(ctx, "person.add", func(t *txn) error {
		p := domain.Person{ID: s.newID(), CompanyID: t.ws.Company.ID, Name: name, Email: in.Email, UpdatedAt: t.now}
		if err := setPersonRole(t.ws, &p, in.RoleID); err != nil {
			return err
		}
		t.ws.People = append(t.ws.People, p)
		out = p
		return nil
	})
	return out, err
}

func setPersonRole(ws *domain.Workspace, p *domain.Person, roleID *string) error {
	if roleID == nil {
		return nil
	}
	if *roleID == "" {
		p.RoleID = nil
		return nil
	}
	if _, err := lookup(ws.Roles, domain.KindRole, *roleID); err != nil {
		return err
	}
	v := *roleID
	p.RoleID = &v
	return nil
}

func (s *Store) UpdatePerson(ctx context.Context, id string, patch PersonPatch) (domain.Person, error) {
	var out domain.Person
	err := s.mutate(ctx, "person.update", func(t *txn) error {
		p, err := lookup(t.ws.People, domain.KindPerson, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name, err := requireText("person name", *patch.Name)
			if err != nil {
				return err
			}
			p.Name = name
		}
		if patch.Email != nil {
			p.Email = *patch.Email
		}
		if err := setPersonRole(t.ws, p, patch.RoleID); err != nil {
			return err
		}
		p.Touch(t.now)
		out = *p
		return nil
	})
	return out, err
}

// DeletePerson removes a person and clears the activities it owned.
func (s *Store) DeletePerson(ctx context.Context, id string) error {
	return s.mutate(ctx, "person.delete", func(t *txn) error {
		if _, err := lookup(t.ws.People, domain.KindPerson, id); err != nil {
			return err
		}
		t.ws.People, _ = removeRecords(t.ws.People, func(p *domain.Person) bool { return p.ID == id })
		t.tombstone(domain.KindPerson, id)
		for i := range t.ws.CoreActivities {
			a := &t.ws.CoreActivities[i]
			if a.OwnerID != nil && *a.OwnerID == id {
				a.OwnerID = nil
				a.Touch(t.now)
			}
		}
		return nil
	})
}

type RolePatch struct {
	Name        *string
	Description *string
}

func (s *Store) AddRole(ctx context.Context, name, description string) (domain.Role, error) {
	name, err := requireText("role name", name)
	if err != nil {
		return domain.Role{}, err
	}
	var out domain.Role
	err = s.mutate(ctx, "role.add", func(t *txn) error {
		out = domain.Role{ID: s.newID(), CompanyID: t.ws.Company.ID, Name: name, Description: description, UpdatedAt: t.now}
		t.ws.Roles = append(t.ws.Roles, out)
		return nil
	})
	return out, err
}

func (s *Store) UpdateRole(ctx context.Context, id string, patch RolePatch) (domain.Role, error) {
	var out domain.Role
	err := s.mutate(ctx, "role.update", func(t *txn) error {
		r, err := lookup(t.ws.Roles, domain.KindRole, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name, err := requireText("role name", *patch.Name)
			if err != nil {
				return err
			}
			r.Name = name
		}
		if patch.Description != nil {
			r.Description = *patch.Description
		}
		r.Touch(t.now)
		out = *r
		return nil
	})
	return out, err
}

// DeleteRole removes a role and clears it from people and activities.
func (s *Store) DeleteRole(ctx context.Context, id string) error {
	return s.mutate(ctx, "role.delete", func(t *txn) error {
		if _, err := lookup(t.ws.Roles, domain.KindRole, id); err != nil {
			return err
		}
		t.ws.Roles, _ = removeRecords(t.ws.Roles, func(r *domain.Role) bool { return r.ID == id })
		t.tombstone(domain.KindRole, id)
		for i := range t.ws.People {
			p := &t.ws.People[i]
			if p.RoleID != nil && *p.RoleID == id {
				p.RoleID = nil
				p.Touch(t.now)
			}
		}
		for i := range t.ws.CoreActivities {
			a := &t.ws.CoreActivities[i]
			if a.RoleID != nil && *a.RoleID == id {
				a.RoleID = nil
				a.Touch(t.now)
			}
		}
		return nil
	})
}

type SoftwareInput struct {
	Name        string
	Vendor      string
	Description string
}

type SoftwarePatch struct {
	Name        *string
	Vendor      *string
	Description *string
}

func (s *Store) AddSoftware(ctx context.Context, in SoftwareInput) (domain.Software, error) {
	name, err := requireText("software name", in.Name)
	if err != nil {
		return domain.Software{}, err
	}
	var out domain.Software
	err = s.mutate(ctx, "software.add", func(t *txn) error {
		out = domain.Software{
			ID:          s.newID(),
			CompanyID:   t.ws.Company.ID,
			Name:        name,
			Vendor:      in.Vendor,
			Description: in.Description,
			UpdatedAt:   t.now,
		}
		t.ws.Software = append(t.ws.Software, out)
		return nil
	})
	return out, err
}

func (s *Store) UpdateSoftware(ctx context.Context, id string, patch SoftwarePatch) (domain.Software, error) {
	var out domain.Software
	err := s.mutate(ctx, "software.update", func(t *txn) error {
		sw, err := lookup(t.ws.Software, domain.KindSoftware, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name, err := requireText("software name", *patch.Name)
			if err != nil {
				return err
			}
			sw.Name = name
		}
		if patch.Vendor != nil {
			sw.Vendor = *patch.Vendor
		}
		if patch.Description != nil {
			sw.Description = *patch.Description
		}
		sw.Touch(t.now)
		out = *sw
		return nil
	})
	return out, err
}

func (s *Store) DeleteSoftware(ctx context.Context, id string) error {
	return s.mutate(ctx, "software.delete", func(t *txn) error {
		if _, err := lookup(t.ws.Software, domain.KindSoftware, id); err != nil {
			return err
		}
		t.ws.Software, _ = removeRecords(t.ws.Software, func(sw *domain.Software) bool { return sw.ID == id })
		t.tombstone(domain.KindSoftware, id)
		t.dropSoftwareLinks(func(l *domain.ActivitySoftware) bool { return l.SoftwareID == id })
		return nil
	})
}
