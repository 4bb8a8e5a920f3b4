package syncer

import (
	"reflect"
	"sort"
	"time"

	"opsmap/internal/domain"
	"opsmap/internal/ordering"
)

type entity interface {
	Key() string
	Modified() string
	Touch(string)
}

type orderedEntity interface {
	entity
	ordering.Child
}

// newer reports whether marker a is strictly after b. A missing marker never wins.
func newer(a, b string) bool {
	at, bt := domain.ParseTime(a), domain.ParseTime(b)
	if at.IsZero() || bt.IsZero() {
		return false
	}
	return at.After(bt)
}

type tombstones map[string]domain.Tombstone

func tombKey(kind domain.EntityKind, id string) string {
	return string(kind) + "/" + id
}

func (t tombstones) add(ts domain.Tombstone) {
	k := tombKey(ts.Kind, ts.ID)
	if cur, ok := t[k]; ok && !domain.ParseTime(ts.DeletedAt).After(domain.ParseTime(cur.DeletedAt)) {
		return
	}
	t[k] = ts
}

// kills reports whether a deletion at or after marker covers the entity.
func (t tombstones) kills(kind domain.EntityKind, id, marker string) bool {
	ts, ok := t[tombKey(kind, id)]
	if !ok {
		return false
	}
	return !domain.ParseTime(ts.DeletedAt).Before(domain.ParseTime(marker))
}

func (t tombstones) list() []domain.Tombstone {
	out := make([]domain.Tombstone, 0, len(t))
	for _, ts := range t {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func find[T any, P interface {
	*T
	entity
}](all []T, key string) (T, bool) {
	for i := range all {
		if P(&all[i]).Key() == key {
			return all[i], true
		}
	}
	var zero T
	return zero, false
}

// pick returns the copy that wins a conflict: local only when strictly newer.
func pick[T any, P interface {
	*T
	entity
}](local, remote T) T {
	if newer(P(&local).Modified(), P(&remote).Modified()) {
		return local
	}
	return remote
}

// mergeEntities unions two collections key by key, dropping deleted entities.
// The result is ordered by key.
func mergeEntities[T any, P interface {
	*T
	entity
}](kind domain.EntityKind, local, remote []T, dead tombstones) []T {
	byKey := make(map[string]T, len(local)+len(remote))
	for i := range remote {
		byKey[P(&remote[i]).Key()] = remote[i]
	}
	for i := range local {
		k := P(&local[i]).Key()
		if r, ok := byKey[k]; ok {
			byKey[k] = pick[T, P](local[i], r)
			continue
		}
		byKey[k] = local[i]
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		v := byKey[k]
		if dead.kills(kind, k, P(&v).Modified()) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// merger carries one workspace merge.
type merger struct {
	ws       domain.Workspace
	local    domain.Workspace
	remote   domain.Workspace
	dead     tombstones
	restored bool
}

// restore makes sure key exists in merged, pulling it from either side when it was
// dropped. It reports false when no copy exists anywhere.
func restore[T any, P interface {
	*T
	entity
}](m *merger, kind domain.EntityKind, key string, merged *[]T, local, remote []T) bool {
	if _, ok := find[T, P](*merged, key); ok {
		return true
	}
	l, lok := find[T, P](local, key)
	r, rok := find[T, P](remote, key)
	var v T
	switch {
	case lok && rok:
		v = pick[T, P](l, r)
	case lok:
		v = l
	case rok:
		v = r
	default:
		return false
	}
	*merged = append(*merged, v)
	delete(m.dead, tombKey(kind, key))
	m.restored = true
	return true
}

// keep filters all by ok and reports whether anything was dropped.
func keep[T any](all []T, ok func(*T) bool) ([]T, bool) {
	out := make([]T, 0, len(all))
	dropped := false
	for i := range all {
		if ok(&all[i]) {
			out = append(out, all[i])
			continue
		}
		dropped = true
	}
	return out, dropped
}

func (m *merger) function(id string) bool {
	return restore(m, domain.KindFunction, id, &m.ws.Functions, m.local.Functions, m.remote.Functions)
}

func (m *merger) subFunction(id string) bool {
	return restore(m, domain.KindSubFunction, id, &m.ws.SubFunctions, m.local.SubFunctions, m.remote.SubFunctions)
}

func (m *merger) activity(id string) bool {
	return restore(m, domain.KindCoreActivity, id, &m.ws.CoreActivities, m.local.CoreActivities, m.remote.CoreActivities)
}

func (m *merger) workflow(id string) bool {
	return restore(m, domain.KindWorkflow, id, &m.ws.Workflows, m.local.Workflows, m.remote.Workflows)
}

func (m *merger) phase(id string) bool {
	return restore(m, domain.KindPhase, id, &m.ws.Phases, m.local.Phases, m.remote.Phases)
}

func (m *merger) step(id string) bool {
	return restore(m, domain.KindStep, id, &m.ws.Steps, m.local.Steps, m.remote.Steps)
}

func (m *merger) software(id string) bool {
	return restore(m, domain.KindSoftware, id, &m.ws.Software, m.local.Software, m.remote.Software)
}

func (m *merger) person(id string) bool {
	return restore(m, domain.KindPerson, id, &m.ws.People, m.local.People, m.remote.People)
}

func (m *merger) role(id string) bool {
	return restore(m, domain.KindRole, id, &m.ws.Roles, m.local.Roles, m.remote.Roles)
}

// resolveOrphans restores missing parents or drops their children until stable.
func (m *merger) resolveOrphans() {
	for {
		m.restored = false
		var d [9]bool
		w := &m.ws
		w.SubFunctions, d[0] = keep(w.SubFunctions, func(sf *domain.SubFunction) bool { return m.function(sf.FunctionID) })
		w.SubFunctionActivities, d[1] = keep(w.SubFunctionActivities, func(l *domain.SubFunctionActivity) bool {
			return m.subFunction(l.SubFunctionID) && m.activity(l.ActivityID)
		})
		w.Phases, d[2] = keep(w.Phases, func(p *domain.Phase) bool { return m.workflow(p.WorkflowID) })
		w.Steps, d[3] = keep(w.Steps, func(s *domain.Step) bool { return m.phase(s.PhaseID) })
		w.StepActivities, d[4] = keep(w.StepActivities, func(l *domain.StepActivity) bool {
			return m.step(l.StepID) && m.activity(l.ActivityID)
		})
		w.ActivitySoftware, d[5] = keep(w.ActivitySoftware, func(l *domain.ActivitySoftware) bool {
			return m.activity(l.ActivityID) && m.software(l.SoftwareID)
		})
		w.ChecklistItems, d[6] = keep(w.ChecklistItems, func(c *domain.ChecklistItem) bool { return m.activity(c.CoreActivityID) })
		for i := range w.CoreActivities {
			a := &w.CoreActivities[i]
			if a.OwnerID != nil && !m.person(*a.OwnerID) {
				a.OwnerID = nil
				d[7] = true
			}
			if a.RoleID != nil && !m.role(*a.RoleID) {
				a.RoleID = nil
				d[7] = true
			}
		}
		for i := range w.People {
			p := &w.People[i]
			if p.RoleID != nil && !m.role(*p.RoleID) {
				p.RoleID = nil
				d[8] = true
			}
		}
		changed := m.restored
		for _, v := range d {
			changed = changed || v
		}
		if !changed {
			return
		}
	}
}

func maxMarker[T any, P interface {
	*T
	entity
}](sets ...[]T) time.Time {
	var max time.Time
	for _, set := range sets {
		for i := range set {
			if t := domain.ParseTime(P(&set[i]).Modified()); t.After(max) {
				max = t
			}
		}
	}
	return max
}

// normalize densely reindexes every sibling group of merged. A reindexed entity
// is moved just past the newest remote marker unless it is already newer, so it
// wins the next merge against the same remote copy. The marker depends on the
// remote copy alone, which keeps a second merge from moving it again.
func normalize[T any, P interface {
	*T
	orderedEntity
}](merged, remote []T) []T {
	out, changed := ordering.ReindexGroups[T, P](merged)
	if len(changed) == 0 {
		return out
	}
	bump := maxMarker[T, P](remote).Add(time.Nanosecond)
	for i := range out {
		p := P(&out[i])
		if changed[p.Key()] && domain.ParseTime(p.Modified()).Before(bump) {
			p.Touch(domain.FormatTime(bump))
		}
	}
	return out
}

func sortByKey[T any, P interface {
	*T
	entity
}](all []T) []T {
	out := make([]T, len(all))
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool { return P(&out[i]).Key() < P(&out[j]).Key() })
	return out
}

// Merge reconciles the local and remote copies of one workspace.
//
// Each entity is taken from the side with the strictly newer modification
// marker, the remote side winning ties and missing markers. Entities present on
// one side only are kept unless a tombstone at or after their marker exists on
// either side. Orphans get their parent restored when any copy of it exists and
// are dropped otherwise. Sibling sets are then densely reindexed. Merging the
// result again with the same remote copy returns it unchanged.
func Merge(local, remote domain.Workspace) domain.Workspace {
	local, remote = local.Clone(), remote.Clone()
	dead := tombstones{}
	for _, ts := range local.Tombstones {
		dead.add(ts)
	}
	for _, ts := range remote.Tombstones {
		dead.add(ts)
	}

	out := remote
	if out.CreatedAt == "" {
		out.CreatedAt = local.CreatedAt
	}
	if out.OwnerUserID == "" {
		out.OwnerUserID = local.OwnerUserID
	}
	if newer(local.UpdatedAt, remote.UpdatedAt) {
		out.Name = local.Name
		out.UpdatedAt = local.UpdatedAt
	}
	if newer(local.Company.UpdatedAt, remote.Company.UpdatedAt) {
		out.Company = local.Company
	}

	out.Functions = mergeEntities(domain.KindFunction, local.Functions, remote.Functions, dead)
	out.SubFunctions = mergeEntities(domain.KindSubFunction, local.SubFunctions, remote.SubFunctions, dead)
	out.CoreActivities = mergeEntities(domain.KindCoreActivity, local.CoreActivities, remote.CoreActivities, dead)
	out.SubFunctionActivities = mergeEntities(domain.KindSubFunctionActivity, local.SubFunctionActivities, remote.SubFunctionActivities, dead)
	out.StepActivities = mergeEntities(domain.KindStepActivity, local.StepActivities, remote.StepActivities, dead)
	out.ActivitySoftware = mergeEntities(domain.KindActivitySoftware, local.ActivitySoftware, remote.ActivitySoftware, dead)
	out.Workflows = mergeEntities(domain.KindWorkflow, local.Workflows, remote.Workflows, dead)
	out.Phases = mergeEntities(domain.KindPhase, local.Phases, remote.Phases, dead)
	out.Steps = mergeEntities(domain.KindStep, local.Steps, remote.Steps, dead)
	out.People = mergeEntities(domain.KindPerson, local.People, remote.People, dead)
	out.Roles = mergeEntities(domain.KindRole, local.Roles, remote.Roles, dead)
	out.Software = mergeEntities(domain.KindSoftware, local.Software, remote.Software, dead)
	out.ChecklistItems = mergeEntities(domain.KindChecklistItem, local.ChecklistItems, remote.ChecklistItems, dead)

	m := &merger{ws: out, local: local, remote: remote, dead: dead}
	m.resolveOrphans()
	out = m.ws

	out.Functions = normalize(out.Functions, remote.Functions)
	out.SubFunctions = normalize(out.SubFunctions, remote.SubFunctions)
	out.SubFunctionActivities = normalize(out.SubFunctionActivities, remote.SubFunctionActivities)
	out.StepActivities = normalize(out.StepActivities, remote.StepActivities)
	out.Phases = normalize(out.Phases, remote.Phases)
	out.Steps = normalize(out.Steps, remote.Steps)
	out.ChecklistItems = normalize(out.ChecklistItems, remote.ChecklistItems)

	out.CoreActivities = sortByKey(out.CoreActivities)
	out.ActivitySoftware = sortByKey(out.ActivitySoftware)
	out.Workflows = sortByKey(out.Workflows)
	out.People = sortByKey(out.People)
	out.Roles = sortByKey(out.Roles)
	out.Software = sortByKey(out.Software)

	pruneLive(dead, &out)
	out.Tombstones = dead.list()
	return out
}

// pruneLive forgets tombstones of entities that survived the merge.
func pruneLive(dead tombstones, ws *domain.Workspace) {
	drop := func(kind domain.EntityKind, key string) { delete(dead, tombKey(kind, key)) }
	for i := range ws.Functions {
		drop(domain.KindFunction, ws.Functions[i].Key())
	}
	for i := range ws.SubFunctions {
		drop(domain.KindSubFunction, ws.SubFunctions[i].Key())
	}
	for i := range ws.CoreActivities {
		drop(domain.KindCoreActivity, ws.CoreActivities[i].Key())
	}
	for i := range ws.SubFunctionActivities {
		drop(domain.KindSubFunctionActivity, ws.SubFunctionActivities[i].Key())
	}
	for i := range ws.StepActivities {
		drop(domain.KindStepActivity, ws.StepActivities[i].Key())
	}
	for i := range ws.ActivitySoftware {
		drop(domain.KindActivitySoftware, ws.ActivitySoftware[i].Key())
	}
	for i := range ws.Workflows {
		drop(domain.KindWorkflow, ws.Workflows[i].Key())
	}
	for i := range ws.Phases {
		drop(domain.KindPhase, ws.Phases[i].Key())
	}
	for i := range ws.Steps {
		drop(domain.KindStep, ws.Steps[i].Key())
	}
	for i := range ws.People {
		drop(domain.KindPerson, ws.People[i].Key())
	}
	for i := range ws.Roles {
		drop(domain.KindRole, ws.Roles[i].Key())
	}
	for i := range ws.Software {
		drop(domain.KindSoftware, ws.Software[i].Key())
	}
	for i := range ws.ChecklistItems {
		drop(domain.KindChecklistItem, ws.ChecklistItems[i].Key())
	}
}

// canonical orders every collection by key so two copies can be compared.
func canonical(ws domain.Workspace) domain.Workspace {
	c := ws.Clone()
	c.Functions = sortByKey(c.Functions)
	c.SubFunctions = sortByKey(c.SubFunctions)
	c.CoreActivities = sortByKey(c.CoreActivities)
	c.SubFunctionActivities = sortByKey(c.SubFunctionActivities)
	c.StepActivities = sortByKey(c.StepActivities)
	c.ActivitySoftware = sortByKey(c.ActivitySoftware)
	c.Workflows = sortByKey(c.Workflows)
	c.Phases = sortByKey(c.Phases)
	c.Steps = sortByKey(c.Steps)
	c.People = sortByKey(c.People)
	c.Roles = sortByKey(c.Roles)
	c.Software = sortByKey(c.Software)
	c.ChecklistItems = sortByKey(c.ChecklistItems)
	dead := tombstones{}
	for _, ts := range c.Tombstones {
		dead.add(ts)
	}
	c.Tombstones = dead.list()
	return c
}

// Equivalent reports whether two copies hold the same content regardless of collection order.
func Equivalent(a, b domain.Workspace) bool {
	return reflect.DeepEqual(canonical(a), canonical(b))
}

// Stats counts what a MergeAll did.
type Stats struct {
	Adopted   int
	Merged    int
	LocalOnly int
	Skipped   int
}

// MergeAll reconciles the local collection with the remote workspaces of userID.
// Remote workspaces deleted locally are skipped. It returns the new collection and
// the workspaces whose merged content the remote copy does not have yet.
func MergeAll(local []domain.Workspace, deleted []domain.Tombstone, remote []domain.Workspace, userID string) ([]domain.Workspace, []domain.Workspace, Stats) {
	var stats Stats
	gone := map[string]bool{}
	for _, ts := range deleted {
		gone[ts.ID] = true
	}
	remoteByID := map[string]domain.Workspace{}
	for _, ws := range remote {
		remoteByID[ws.ID] = ws
	}

	var merged, uploads []domain.Workspace
	seen := map[string]bool{}
	for _, lw := range local {
		seen[lw.ID] = true
		rw, ok := remoteByID[lw.ID]
		if !ok {
			merged = append(merged, lw)
			if lw.OwnerUserID == userID {
				stats.LocalOnly++
				uploads = append(uploads, lw.Clone())
			}
			continue
		}
		mw := Merge(lw, rw)
		stats.Merged++
		merged = append(merged, mw)
		if !Equivalent(mw, rw) {
			uploads = append(uploads, mw.Clone())
		}
	}
	for _, rw := range remote {
		if seen[rw.ID] {
			continue
		}
		seen[rw.ID] = true
		if gone[rw.ID] {
			stats.Skipped++
			continue
		}
		stats.Adopted++
		merged = append(merged, rw.Clone())
	}
	return merged, uploads, stats
}
