package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"opsmap/internal/domain"
)

func at(minute int) string {
	return domain.FormatTime(time.Date(2024, 1, 1, 0, minute, 0, 0, time.UTC))
}

func ws(id string) domain.Workspace {
	return domain.Workspace{
		ID:          id,
		OwnerUserID: "alice",
		Name:        "Acme",
		CreatedAt:   at(0),
		UpdatedAt:   at(0),
		Company:     domain.Company{ID: "c1", Name: "Acme", CreatedAt: at(0), UpdatedAt: at(0)},
	}
}

func fn(id string, index int, status domain.Status, modified string) domain.Function {
	return domain.Function{ID: id, CompanyID: "c1", Name: id, OrderIndex: index, Status: status, UpdatedAt: modified}
}

func names(list []domain.Function) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = list[i].Name
	}
	return out
}

func TestMergeNewerRemoteStatusWins(t *testing.T) {
	local := ws("w1")
	local.Functions = []domain.Function{fn("F1", 0, domain.StatusDraft, at(1))}
	remote := ws("w1")
	remote.Functions = []domain.Function{fn("F1", 0, domain.StatusActive, at(2))}

	got := Merge(local, remote)
	require.Len(t, got.Functions, 1)
	require.Equal(t, domain.StatusActive, got.Functions[0].Status)
	require.True(t, Equivalent(got, remote))
}

func TestMergeTieGoesToRemote(t *testing.T) {
	local := ws("w1")
	local.Functions = []domain.Function{fn("F1", 0, domain.StatusDraft, at(1))}
	remote := ws("w1")
	remote.Functions = []domain.Function{fn("F1", 0, domain.StatusActive, at(1))}

	got := Merge(local, remote)
	require.Equal(t, domain.StatusActive, got.Functions[0].Status)

	local.Functions[0].UpdatedAt = at(3)
	got = Merge(local, remote)
	require.Equal(t, domain.StatusDraft, got.Functions[0].Status)
}

func TestMergeKeepsBothSidesAndIsIdempotent(t *testing.T) {
	local := ws("w1")
	local.Functions = []domain.Function{
		fn("F1", 0, domain.StatusDraft, at(1)),
		fn("F2", 1, domain.StatusDraft, at(3)),
	}
	local.Tombstones = []domain.Tombstone{{Kind: domain.KindFunction, ID: "F3", DeletedAt: at(4)}}
	remote := ws("w1")
	remote.Functions = []domain.Function{
		fn("F1", 0, domain.StatusActive, at(2)),
		fn("F3", 1, domain.StatusActive, at(2)),
		fn("F4", 1, domain.StatusDraft, at(2)),
	}

	got := Merge(local, remote)
	require.Equal(t, []string{"F1", "F2", "F4"}, names(got.Functions))
	for i, f := range got.Functions {
		require.Equal(t, i, f.OrderIndex)
	}
	require.Equal(t, domain.StatusActive, got.Functions[0].Status)
	require.Equal(t, domain.FormatTime(domain.ParseTime(at(2)).Add(time.Nanosecond)), got.Functions[2].UpdatedAt)
	require.Equal(t, []domain.Tombstone{{Kind: domain.KindFunction, ID: "F3", DeletedAt: at(4)}}, got.Tombstones)
	require.False(t, Equivalent(got, remote))

	again := Merge(got, remote)
	require.Equal(t, got, again)
}

func TestMergeWithoutMarkersSettles(t *testing.T) {
	local := ws("w1")
	local.Functions = []domain.Function{
		fn("F1", 0, domain.StatusDraft, ""),
		fn("F2", 1, domain.StatusDraft, ""),
	}
	remote := ws("w1")
	remote.Functions = []domain.Function{
		fn("F1", 1, domain.StatusActive, ""),
		fn("F2", 1, domain.StatusActive, ""),
	}

	once := Merge(local, remote)
	for i, f := range once.Functions {
		require.Equal(t, i, f.OrderIndex)
		require.Equal(t, domain.StatusActive, f.Status)
	}

	twice := Merge(once, remote)
	require.Equal(t, once, twice)
	require.Equal(t, once, Merge(twice, remote))
	require.True(t, Equivalent(once, twice))
}

func TestMergeNewerEditOutlivesDeletion(t *testing.T) {
	local := ws("w1")
	local.Tombstones = []domain.Tombstone{{Kind: domain.KindFunction, ID: "F1", DeletedAt: at(1)}}
	remote := ws("w1")
	remote.Functions = []domain.Function{fn("F1", 0, domain.StatusActive, at(2))}

	got := Merge(local, remote)
	require.Len(t, got.Functions, 1)
	require.Empty(t, got.Tombstones)
}

func TestMergeRestoresDeletedParent(t *testing.T) {
	local := ws("w1")
	local.Functions = []domain.Function{fn("F1", 0, domain.StatusDraft, at(1))}
	local.SubFunctions = []domain.SubFunction{{ID: "S1", FunctionID: "F1", Name: "Leads", Status: domain.StatusDraft, UpdatedAt: at(6)}}
	remote := ws("w1")
	remote.Tombstones = []domain.Tombstone{{Kind: domain.KindFunction, ID: "F1", DeletedAt: at(5)}}

	got := Merge(local, remote)
	require.Equal(t, []string{"F1"}, names(got.Functions))
	require.Len(t, got.SubFunctions, 1)
	require.Empty(t, got.Tombstones)
	require.Equal(t, got, Merge(got, remote))
}

func TestMergeDropsUnresolvableOrphans(t *testing.T) {
	local := ws("w1")
	remote := ws("w1")
	remote.SubFunctions = []domain.SubFunction{{ID: "S1", FunctionID: "missing", Name: "Leads", UpdatedAt: at(1)}}
	remote.CoreActivities = []domain.CoreActivity{{ID: "A1", CompanyID: "c1", Name: "Qualify", OwnerID: strPtr("nobody"), UpdatedAt: at(1)}}
	remote.ChecklistItems = []domain.ChecklistItem{{ID: "C1", CoreActivityID: "gone", Text: "x", UpdatedAt: at(1)}}
	remote.StepActivities = []domain.StepActivity{{StepID: "no-step", ActivityID: "A1", UpdatedAt: at(1)}}

	got := Merge(local, remote)
	require.Empty(t, got.SubFunctions)
	require.Empty(t, got.ChecklistItems)
	require.Empty(t, got.StepActivities)
	require.Len(t, got.CoreActivities, 1)
	require.Nil(t, got.CoreActivities[0].OwnerID)
}

func TestMergeWorkspaceFieldsByMarker(t *testing.T) {
	local := ws("w1")
	local.Name = "Local name"
	local.UpdatedAt = at(5)
	local.Company.Industry = "Retail"
	local.Company.UpdatedAt = at(1)
	remote := ws("w1")
	remote.Company.Industry = "Logistics"
	remote.Company.UpdatedAt = at(2)

	got := Merge(local, remote)
	require.Equal(t, "Local name", got.Name)
	require.Equal(t, "Logistics", got.Company.Industry)
}

func TestMergeAll(t *testing.T) {
	same := ws("same")
	same.Functions = []domain.Function{fn("F1", 0, domain.StatusActive, at(1))}
	deleted := ws("deleted")
	adopted := ws("adopted")
	localOnly := ws("local-only")
	foreign := ws("foreign")
	foreign.OwnerUserID = "bob"

	merged, uploads, stats := MergeAll(
		[]domain.Workspace{same, localOnly, foreign},
		[]domain.Tombstone{{Kind: domain.KindWorkspace, ID: "deleted", DeletedAt: at(9)}},
		[]domain.Workspace{same, deleted, adopted},
		"alice",
	)

	ids := make([]string, len(merged))
	for i := range merged {
		ids[i] = merged[i].ID
	}
	require.Equal(t, []string{"same", "local-only", "foreign", "adopted"}, ids)
	require.Len(t, uploads, 1)
	require.Equal(t, "local-only", uploads[0].ID)
	require.Equal(t, Stats{Adopted: 1, Merged: 1, LocalOnly: 1, Skipped: 1}, stats)
}

func strPtr(s string) *string { return &s }
