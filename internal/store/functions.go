package store

import (
	"context"

	"opsmap/internal/domain"
	"opsmap/internal/lifecycle"
)

type FunctionInput struct {
	Name        string
	Description string
	Color       string
	// Placeholder creates the function in the gap status.
	Placeholder bool
	// Index is the sibling position; nil appends.
	Index *int
}

type FunctionPatch struct {
	Name        *string
	Description *string
	Color       *string
}

func (s *Store) AddFunction(ctx context.Context, in FunctionInput) (domain.Function, error) {
	name, err := requireText("function name", in.Name)
	if err != nil {
		return domain.Function{}, err
	}
	var out domain.Function
	err = s.mutate(ctx, "function.add", func(t *txn) error {
		f := domain.Function{
			ID:          s.newID(),
			Name:        name,
			Description: in.Description,
			Color:       in.Color,
			Status:      lifecycle.InitialStatus(in.Placeholder),
		}
		t.ws.Functions = insertOrdered(t.ws.Functions, f, t.ws.Company.ID, in.Index, t.now)
		out, _ = get(t.ws.Functions, f.ID)
		return nil
	})
	return out, err
}

func (s *Store) UpdateFunction(ctx context.Context, id string, patch FunctionPatch) (domain.Function, error) {
	var out domain.Function
	err := s.mutate(ctx, "function.update", func(t *txn) error {
		f, err := lookup(t.ws.Functions, domain.KindFunction, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name, err := requireText("function name", *patch.Name)
			if err != nil {
				return err
			}
			f.Name = name
		}
		if patch.Description != nil {
			f.Description = *patch.Description
		}
		if patch.Color != nil {
			f.Color = *patch.Color
		}
		markEdited(t, domain.KindFunction, f.ID, &f.Status)
		f.Touch(t.now)
		out = *f
		return nil
	})
	return out, err
}

// DeleteFunction removes a function with its sub-functions and their activity links.
func (s *Store) DeleteFunction(ctx context.Context, id string) error {
	return s.mutate(ctx, "function.delete", func(t *txn) error {
		if _, err := lookup(t.ws.Functions, domain.KindFunction, id); err != nil {
			return err
		}
		t.ws.Functions, _ = removeOrdered(t.ws.Functions, id, t.now)
		t.tombstone(domain.KindFunction, id)
		t.dropSubFunctions(func(sf *domain.SubFunction) bool { return sf.FunctionID == id })
		return nil
	})
}

func (s *Store) MoveFunction(ctx context.Context, id string, index int) error {
	return s.mutate(ctx, "function.move", func(t *txn) error {
		if _, err := lookup(t.ws.Functions, domain.KindFunction, id); err != nil {
			return err
		}
		out, err := moveOrdered(t.ws.Functions, id, t.ws.Company.ID, index, t.now)
		if err != nil {
			return err
		}
		t.ws.Functions = out
		return nil
	})
}

type SubFunctionInput struct {
	Name        string
	Description string
	Placeholder bool
	Index       *int
}

type SubFunctionPatch struct {
	Name        *string
	Description *string
}

func (s *Store) AddSubFunction(ctx context.Context, functionID string, in SubFunctionInput) (domain.SubFunction, error) {
	name, err := requireText("sub-function name", in.Name)
	if err != nil {
		return domain.SubFunction{}, err
	}
	var out domain.SubFunction
	err = s.mutate(ctx, "subfunction.add", func(t *txn) error {
		if _, err := lookup(t.ws.Functions, domain.KindFunction, functionID); err != nil {
			return err
		}
		sf := domain.SubFunction{
			ID:          s.newID(),
			Name:        name,
			Description: in.Description,
			Status:      lifecycle.InitialStatus(in.Placeholder),
		}
		t.ws.SubFunctions = insertOrdered(t.ws.SubFunctions, sf, functionID, in.Index, t.now)
		out, _ = get(t.ws.SubFunctions, sf.ID)
		return nil
	})
	return out, err
}

func (s *Store) UpdateSubFunction(ctx context.Context, id string, patch SubFunctionPatch) (domain.SubFunction, error) {
	var out domain.SubFunction
	err := s.mutate(ctx, "subfunction.update", func(t *txn) error {
		sf, err := lookup(t.ws.SubFunctions, domain.KindSubFunction, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name, err := requireText("sub-function name", *patch.Name)
			if err != nil {
				return err
			}
			sf.Name = name
		}
		if patch.Description != nil {
			sf.Description = *patch.Description
		}
		markEdited(t, domain.KindSubFunction, sf.ID, &sf.Status)
		sf.Touch(t.now)
		out = *sf
		return nil
	})
	return out, err
}

func (s *Store) DeleteSubFunction(ctx context.Context, id string) error {
	return s.mutate(ctx, "subfunction.delete", func(t *txn) error {
		if _, err := lookup(t.ws.SubFunctions, domain.KindSubFunction, id); err != nil {
			return err
		}
		t.dropSubFunctions(func(sf *domain.SubFunction) bool { return sf.ID == id })
		return nil
	})
}

// MoveSubFunction repositions a sub-function, possibly under another function.
func (s *Store) MoveSubFunction(ctx context.Context, id, functionID string, index int) error {
	return s.mutate(ctx, "subfunction.move", func(t *txn) error {
		if _, err := lookup(t.ws.SubFunctions, domain.KindSubFunction, id); err != nil {
			return err
		}
		if _, err := lookup(t.ws.Functions, domain.KindFunction, functionID); err != nil {
			return err
		}
		out, err := moveOrdered(t.ws.SubFunctions, id, functionID, index, t.now)
		if err != nil {
			return err
		}
		t.ws.SubFunctions = out
		return nil
	})
}
