package domain

// Accessors used by the ordering and merge machinery. Link rows are keyed by their composite key.

func (f *Function) Key() string { return f.ID }
func (f *Function) Parent() string { return f.CompanyID }
func (f *Function) SetParent(id string) { f.CompanyID = id }
func (f *Function) Modified() string { return f.UpdatedAt }
func (f *Function) Touch(ts string) { f.UpdatedAt = ts }
func (f *Function) Position() int { return f.OrderIndex }
func (f *Function) SetPosition(i int) { f.OrderIndex = i }

func (sf *SubFunction) Key() string { return sf.ID }
func (sf *SubFunction) Parent() string { return sf.FunctionID }
func (sf *SubFunction) SetParent(id string) { sf.FunctionID = id }
func (sf *SubFunction) Modified() string { return sf.UpdatedAt }
func (sf *SubFunction) Touch(ts string) { sf.UpdatedAt = ts }
func (sf *SubFunction) Position() int { return sf.OrderIndex }
func (sf *SubFunction) SetPosition(i int) { sf.OrderIndex = i }

func (a *CoreActivity) Key() string { return a.ID }
func (a *CoreActivity) Parent() string { return a.CompanyID }
func (a *CoreActivity) SetParent(id string) { a.CompanyID = id }
func (a *CoreActivity) Modified() string { return a.UpdatedAt }
func (a *CoreActivity) Touch(ts string) { a.UpdatedAt = ts }

func (l *SubFunctionActivity) Key() string { return LinkKey(l.SubFunctionID, l.ActivityID) }
func (l *SubFunctionActivity) Parent() string { return l.SubFunctionID }
func (l *SubFunctionActivity) SetParent(id string) { l.SubFunctionID = id }
func (l *SubFunctionActivity) Modified() string { return l.UpdatedAt }
func (l *SubFunctionActivity) Touch(ts string) { l.UpdatedAt = ts }
func (l *SubFunctionActivity) Position() int { return l.OrderIndex }
func (l *SubFunctionActivity) SetPosition(i int) { l.OrderIndex = i }

func (l *StepActivity) Key() string { return LinkKey(l.StepID, l.ActivityID) }
func (l *StepActivity) Parent() string { return l.StepID }
func (l *StepActivity) SetParent(id string) { l.StepID = id }
func (l *StepActivity) Modified() string { return l.UpdatedAt }
func (l *StepActivity) Touch(ts string) { l.UpdatedAt = ts }
func (l *StepActivity) Position() int { return l.OrderIndex }
func (l *StepActivity) SetPosition(i int) { l.OrderIndex = i }

func (l *ActivitySoftware) Key() string { return LinkKey(l.ActivityID, l.SoftwareID) }
func (l *ActivitySoftware) Parent() string { return l.ActivityID }
func (l *ActivitySoftware) SetParent(id string) { l.ActivityID = id }
func (l *ActivitySoftware) Modified() string { return l.UpdatedAt }
func (l *ActivitySoftware) Touch(ts string) { l.UpdatedAt = ts }

func (w *Workflow) Key() string { return w.ID }
func (w *Workflow) Parent() string { return w.CompanyID }
func (w *Workflow) SetParent(id string) { w.CompanyID = id }
func (w *Workflow) Modified() string { return w.UpdatedAt }
func (w *Workflow) Touch(ts string) { w.UpdatedAt = ts }

func (p *Phase) Key() string { return p.ID }
func (p *Phase) Parent() string { return p.WorkflowID }
func (p *Phase) SetParent(id string) { p.WorkflowID = id }
func (p *Phase) Modified() string { return p.UpdatedAt }
func (p *Phase) Touch(ts string) { p.UpdatedAt = ts }
func (p *Phase) Position() int { return p.OrderIndex }
func (p *Phase) SetPosition(i int) { p.OrderIndex = i }

func (s *Step) Key() string { return s.ID }
func (s *Step) Parent() string { return s.PhaseID }
func (s *Step) SetParent(id string) { s.PhaseID = id }
func (s *Step) Modified() string { return s.UpdatedAt }
func (s *Step) Touch(ts string) { s.UpdatedAt = ts }
func (s *Step) Position() int { return s.OrderIndex }
func (s *Step) SetPosition(i int) { s.OrderIndex = i }

func (p *Person) Key() string { return p.ID }
func (p *Person) Parent() string { return p.CompanyID }
func (p *Person) SetParent(id string) { p.CompanyID = id }
func (p *Person) Modified() string { return p.UpdatedAt }
func (p *Person) Touch(ts string) { p.UpdatedAt = ts }

func (r *Role) Key() string { return r.ID }
func (r *Role) Parent() string { return r.CompanyID }
func (r *Role) SetParent(id string) { r.CompanyID = id }
func (r *Role) Modified() string { return r.UpdatedAt }
func (r *Role) Touch(ts string) { r.UpdatedAt = ts }

func (s *Software) Key() string { return s.ID }
func (s *Software) Parent() string { return s.CompanyID }
func (s *Software) SetParent(id string) { s.CompanyID = id }
func (s *Software) Modified() string { return s.UpdatedAt }
func (s *Software) Touch(ts string) { s.UpdatedAt = ts }

func (c *ChecklistItem) Key() string { return c.ID }
func (c *ChecklistItem) Parent() string { return c.CoreActivityID }
func (c *ChecklistItem) SetParent(id string) { c.CoreActivityID = id }
func (c *ChecklistItem) Modified() string { return c.UpdatedAt }
func (c *ChecklistItem) Touch(ts string) { c.UpdatedAt = ts }
func (c *ChecklistItem) Position() int { return c.OrderIndex }
func (c *ChecklistItem) SetPosition(i int) { c.OrderIndex = i }
