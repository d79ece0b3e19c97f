package database

import (
	"sort"
	"sync"
	"time"

	"tarely-backend/pkg/models"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in maps behind one RWMutex. It backs local
// development and the handler tests; semantics (conflicts, cascades, the
// atomic note link) match the Postgres store.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[string]*models.User
	calendar    map[string]*models.CalendarCredentials // by user id
	workspaces  map[string]*models.Workspace
	members     map[string]*models.WorkspaceMember
	sections    map[string]*models.Section
	tasks       map[string]*models.Task
	subtasks    map[string]*models.Subtask
	comments    map[string]*models.Comment
	attachments map[string]*models.Attachment
	activity    map[string]*models.Activity
	notes       map[string]*models.Note
	folders     map[string]*models.NoteFolder
	templates   map[string]*models.NoteTemplate
	tags        map[string]*models.Tag

	taskTags  map[string]map[string]bool // task id -> tag ids
	noteTags  map[string]map[string]bool // note id -> tag ids
	assignees map[string]map[string]bool // task id -> user ids
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*models.User),
		calendar:    make(map[string]*models.CalendarCredentials),
		workspaces:  make(map[string]*models.Workspace),
		members:     make(map[string]*models.WorkspaceMember),
		sections:    make(map[string]*models.Section),
		tasks:       make(map[string]*models.Task),
		subtasks:    make(map[string]*models.Subtask),
		comments:    make(map[string]*models.Comment),
		attachments: make(map[string]*models.Attachment),
		activity:    make(map[string]*models.Activity),
		notes:       make(map[string]*models.Note),
		folders:     make(map[string]*models.NoteFolder),
		templates:   make(map[string]*models.NoteTemplate),
		tags:        make(map[string]*models.Tag),
		taskTags:    make(map[string]map[string]bool),
		noteTags:    make(map[string]map[string]bool),
		assignees:   make(map[string]map[string]bool),
	}
}

func newID() string { return uuid.New().String() }

func stamp(created *time.Time, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// ==== Users ====

func (s *MemoryStore) CreateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = newID()
	}
	stamp(&user.CreatedAt, &user.UpdatedAt)
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUserByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByID(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) UpdateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	delete(s.calendar, id)
	for mid, m := range s.members {
		if m.UserID == id {
			delete(s.members, mid)
		}
	}
	return nil
}

// ==== Calendar credentials ====

func (s *MemoryStore) SaveCalendarCredentials(creds *models.CalendarCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *creds
	s.calendar[creds.UserID] = &cp
	return nil
}

func (s *MemoryStore) GetCalendarCredentials(userID string) (*models.CalendarCredentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calendar[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ==== Workspaces ====

func (s *MemoryStore) CreateWorkspace(ws *models.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws.ID == "" {
		ws.ID = newID()
	}
	stamp(&ws.CreatedAt, &ws.UpdatedAt)
	cp := *ws
	s.workspaces[ws.ID] = &cp
	return nil
}

func (s *MemoryStore) GetWorkspace(id string) (*models.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (s *MemoryStore) UpdateWorkspace(ws *models.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[ws.ID]; !ok {
		return ErrNotFound
	}
	ws.UpdatedAt = time.Now()
	cp := *ws
	s.workspaces[ws.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteWorkspace(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[id]; !ok {
		return ErrNotFound
	}
	delete(s.workspaces, id)
	for sid, sec := range s.sections {
		if sec.WorkspaceID == id {
			delete(s.sections, sid)
		}
	}
	for tid, t := range s.tasks {
		if t.WorkspaceID == id {
			s.deleteTaskLocked(tid)
		}
	}
	for nid, n := range s.notes {
		if n.WorkspaceID == id {
			delete(s.notes, nid)
			delete(s.noteTags, nid)
		}
	}
	for fid, f := range s.folders {
		if f.WorkspaceID == id {
			delete(s.folders, fid)
		}
	}
	for tgid, tg := range s.tags {
		if tg.WorkspaceID == id {
			delete(s.tags, tgid)
		}
	}
	for mid, m := range s.members {
		if m.WorkspaceID == id {
			delete(s.members, mid)
		}
	}
	return nil
}

func (s *MemoryStore) ListWorkspacesForUser(userID string) ([]models.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Workspace
	for _, ws := range s.workspaces {
		if ws.OwnerID == userID {
			out = append(out, *ws)
			continue
		}
		for _, m := range s.members {
			if m.WorkspaceID == ws.ID && m.UserID == userID && m.Status == models.MemberAccepted {
				out = append(out, *ws)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ==== Members ====

func (s *MemoryStore) CreateMember(m *models.WorkspaceMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.WorkspaceID == m.WorkspaceID && existing.UserID == m.UserID {
			if existing.Status != models.MemberRejected {
				return ErrConflict
			}
			// Reopen a rejected invite in place, keeping one row per pair
			existing.Role = m.Role
			existing.Status = m.Status
			existing.InviterID = m.InviterID
			existing.UpdatedAt = time.Now()
			*m = *existing
			return nil
		}
	}
	if m.ID == "" {
		m.ID = newID()
	}
	stamp(&m.CreatedAt, &m.UpdatedAt)
	cp := *m
	s.members[m.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMember(id string) (*models.WorkspaceMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) GetMemberByWorkspaceAndUser(workspaceID, userID string) (*models.WorkspaceMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.WorkspaceID == workspaceID && m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListMembers(workspaceID string) ([]models.WorkspaceMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.WorkspaceMember
	for _, m := range s.members {
		if m.WorkspaceID == workspaceID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListInvitesForUser(userID string) ([]models.WorkspaceMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.WorkspaceMember
	for _, m := range s.members {
		if m.UserID == userID && m.Status == models.MemberPending {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateMember(m *models.WorkspaceMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; !ok {
		return ErrNotFound
	}
	m.UpdatedAt = time.Now()
	cp := *m
	s.members[m.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteMember(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return ErrNotFound
	}
	delete(s.members, id)
	return nil
}

// ==== Sections ====

func (s *MemoryStore) CreateSection(sec *models.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sec.ID == "" {
		sec.ID = newID()
	}
	stamp(&sec.CreatedAt, &sec.UpdatedAt)
	cp := *sec
	s.sections[sec.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSection(id string) (*models.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.sections[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sec
	return &cp, nil
}

func (s *MemoryStore) ListSections(workspaceID string) ([]models.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Section
	for _, sec := range s.sections {
		if sec.WorkspaceID == workspaceID {
			out = append(out, *sec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *MemoryStore) UpdateSection(sec *models.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[sec.ID]; !ok {
		return ErrNotFound
	}
	sec.UpdatedAt = time.Now()
	cp := *sec
	s.sections[sec.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteSection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[id]; !ok {
		return ErrNotFound
	}
	delete(s.sections, id)
	return nil
}

func (s *MemoryStore) ReassignSectionTasks(fromSectionID, toSectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.SectionID != nil && *t.SectionID == fromSectionID {
			to := toSectionID
			t.SectionID = &to
			t.UpdatedAt = time.Now()
		}
	}
	return nil
}

// ==== Tasks ====

func (s *MemoryStore) CreateTask(t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createTaskLocked(t)
	return nil
}

func (s *MemoryStore) createTaskLocked(t *models.Task) {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Source == "" {
		t.Source = models.SourceManual
	}
	stamp(&t.CreatedAt, &t.UpdatedAt)
	cp := *t
	cp.Tags = nil
	s.tasks[t.ID] = &cp
}

func (s *MemoryStore) CreateTasks(tasks []*models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		s.createTaskLocked(t)
	}
	return nil
}

func (s *MemoryStore) GetTask(id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ListTasks(workspaceID string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.WorkspaceID == workspaceID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListTasksDueBetween(workspaceID string, from, to time.Time) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.WorkspaceID != workspaceID || t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(from) || t.DueDate.After(to) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out, nil
}

func (s *MemoryStore) UpdateTask(t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now()
	cp := *t
	cp.Tags = nil
	s.tasks[t.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	s.deleteTaskLocked(id)
	return nil
}

func (s *MemoryStore) deleteTaskLocked(id string) {
	t := s.tasks[id]
	delete(s.tasks, id)
	for sid, st := range s.subtasks {
		if st.TaskID == id {
			delete(s.subtasks, sid)
		}
	}
	for cid, c := range s.comments {
		if c.TaskID == id {
			delete(s.comments, cid)
		}
	}
	for aid, a := range s.attachments {
		if a.TaskID == id {
			delete(s.attachments, aid)
		}
	}
	for aid, a := range s.activity {
		if a.TaskID == id {
			delete(s.activity, aid)
		}
	}
	delete(s.taskTags, id)
	delete(s.assignees, id)
	// Orphan the linked note instead of deleting it
	if t != nil && t.NoteID != nil {
		if n, ok := s.notes[*t.NoteID]; ok {
			n.TaskID = nil
			n.UpdatedAt = time.Now()
		}
	}
}

// ==== Subtasks ====

func (s *MemoryStore) CreateSubtask(st *models.Subtask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == "" {
		st.ID = newID()
	}
	stamp(&st.CreatedAt, &st.UpdatedAt)
	cp := *st
	s.subtasks[st.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSubtask(id string) (*models.Subtask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.subtasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *MemoryStore) ListSubtasks(taskID string) ([]models.Subtask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Subtask
	for _, st := range s.subtasks {
		if st.TaskID == taskID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *MemoryStore) UpdateSubtask(st *models.Subtask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subtasks[st.ID]; !ok {
		return ErrNotFound
	}
	st.UpdatedAt = time.Now()
	cp := *st
	s.subtasks[st.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteSubtask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subtasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.subtasks, id)
	return nil
}

// ==== Task tags ====

func (s *MemoryStore) AssignTaskTag(taskID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[taskID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.tags[tagID]; !ok {
		return ErrNotFound
	}
	set := s.taskTags[taskID]
	if set == nil {
		set = make(map[string]bool)
		s.taskTags[taskID] = set
	}
	if set[tagID] {
		return ErrConflict
	}
	set[tagID] = true
	return nil
}

func (s *MemoryStore) RemoveTaskTag(taskID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.taskTags[taskID]
	if set == nil || !set[tagID] {
		return ErrNotFound
	}
	delete(set, tagID)
	return nil
}

func (s *MemoryStore) ListTaskTags(taskID string) ([]models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Tag
	for tagID := range s.taskTags[taskID] {
		if tag, ok := s.tags[tagID]; ok {
			out = append(out, *tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ==== Assignees ====

func (s *MemoryStore) AssignTask(taskID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[taskID]; !ok {
		return ErrNotFound
	}
	set := s.assignees[taskID]
	if set == nil {
		set = make(map[string]bool)
		s.assignees[taskID] = set
	}
	if set[userID] {
		return ErrConflict
	}
	set[userID] = true
	return nil
}

func (s *MemoryStore) UnassignTask(taskID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.assignees[taskID]
	if set == nil || !set[userID] {
		return ErrNotFound
	}
	delete(set, userID)
	return nil
}

func (s *MemoryStore) ListAssignees(taskID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for userID := range s.assignees[taskID] {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out, nil
}

// ==== Comments ====

func (s *MemoryStore) CreateComment(c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	stamp(&c.CreatedAt, &c.UpdatedAt)
	cp := *c
	s.comments[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetComment(id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListComments(taskID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Comment
	for _, c := range s.comments {
		if c.TaskID == taskID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteComment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

// ==== Attachments ====

func (s *MemoryStore) CreateAttachment(a *models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := *a
	s.attachments[a.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAttachment(id string) (*models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attachments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ListAttachments(taskID string) ([]models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Attachment
	for _, a := range s.attachments {
		if a.TaskID == taskID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteAttachment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attachments[id]; !ok {
		return ErrNotFound
	}
	delete(s.attachments, id)
	return nil
}

// ==== Activity ====

func (s *MemoryStore) CreateActivity(a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := *a
	s.activity[a.ID] = &cp
	return nil
}

func (s *MemoryStore) ListActivity(taskID string) ([]models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Activity
	for _, a := range s.activity {
		if a.TaskID == taskID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ==== Notes ====

func (s *MemoryStore) CreateNote(n *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = newID()
	}
	stamp(&n.CreatedAt, &n.UpdatedAt)
	cp := *n
	cp.Tags = nil
	s.notes[n.ID] = &cp
	return nil
}

func (s *MemoryStore) GetNote(id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *MemoryStore) ListNotes(workspaceID string) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Note
	for _, n := range s.notes {
		if n.WorkspaceID == workspaceID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateNote(n *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[n.ID]; !ok {
		return ErrNotFound
	}
	n.UpdatedAt = time.Now()
	cp := *n
	cp.Tags = nil
	s.notes[n.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return ErrNotFound
	}
	// Clear the task-side back reference if linked
	if n.TaskID != nil {
		if t, ok := s.tasks[*n.TaskID]; ok {
			t.NoteID = nil
			t.UpdatedAt = time.Now()
		}
	}
	delete(s.notes, id)
	delete(s.noteTags, id)
	return nil
}

func (s *MemoryStore) LinkNoteTask(note *models.Note, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.notes[note.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.TaskID != nil {
		return ErrConflict
	}
	s.createTaskLocked(task)
	s.tasks[task.ID].NoteID = &note.ID
	task.NoteID = &note.ID
	stored.TaskID = &task.ID
	stored.UpdatedAt = time.Now()
	note.TaskID = &task.ID
	return nil
}

func (s *MemoryStore) UnlinkNoteTask(noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[noteID]
	if !ok {
		return ErrNotFound
	}
	if n.TaskID == nil {
		return ErrConflict
	}
	if t, ok := s.tasks[*n.TaskID]; ok {
		t.NoteID = nil
		t.UpdatedAt = time.Now()
	}
	n.TaskID = nil
	n.UpdatedAt = time.Now()
	return nil
}

// ==== Note tags ====

func (s *MemoryStore) AssignNoteTag(noteID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[noteID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.tags[tagID]; !ok {
		return ErrNotFound
	}
	set := s.noteTags[noteID]
	if set == nil {
		set = make(map[string]bool)
		s.noteTags[noteID] = set
	}
	if set[tagID] {
		return ErrConflict
	}
	set[tagID] = true
	return nil
}

func (s *MemoryStore) RemoveNoteTag(noteID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.noteTags[noteID]
	if set == nil || !set[tagID] {
		return ErrNotFound
	}
	delete(set, tagID)
	return nil
}

func (s *MemoryStore) ListNoteTags(noteID string) ([]models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Tag
	for tagID := range s.noteTags[noteID] {
		if tag, ok := s.tags[tagID]; ok {
			out = append(out, *tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ==== Folders ====

func (s *MemoryStore) CreateFolder(f *models.NoteFolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = newID()
	}
	stamp(&f.CreatedAt, &f.UpdatedAt)
	cp := *f
	s.folders[f.ID] = &cp
	return nil
}

func (s *MemoryStore) GetFolder(id string) (*models.NoteFolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.folders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *MemoryStore) ListFolders(workspaceID string) ([]models.NoteFolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.NoteFolder
	for _, f := range s.folders {
		if f.WorkspaceID == workspaceID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateFolder(f *models.NoteFolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[f.ID]; !ok {
		return ErrNotFound
	}
	f.UpdatedAt = time.Now()
	cp := *f
	s.folders[f.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteFolder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[id]; !ok {
		return ErrNotFound
	}
	delete(s.folders, id)
	// Reparent contained notes to no folder; child folders float to the root
	for _, n := range s.notes {
		if n.FolderID != nil && *n.FolderID == id {
			n.FolderID = nil
			n.UpdatedAt = time.Now()
		}
	}
	for _, f := range s.folders {
		if f.ParentID != nil && *f.ParentID == id {
			f.ParentID = nil
			f.UpdatedAt = time.Now()
		}
	}
	return nil
}

// ==== Templates ====

func (s *MemoryStore) CreateTemplate(t *models.NoteTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	stamp(&t.CreatedAt, &t.UpdatedAt)
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTemplate(id string) (*models.NoteTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ListTemplates() ([]models.NoteTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.NoteTemplate
	for _, t := range s.templates {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteTemplate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

// ==== Tags ====

func (s *MemoryStore) CreateTag(t *models.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tags {
		if existing.WorkspaceID == t.WorkspaceID && existing.Name == t.Name {
			return ErrConflict
		}
	}
	if t.ID == "" {
		t.ID = newID()
	}
	stamp(&t.CreatedAt, &t.UpdatedAt)
	cp := *t
	s.tags[t.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTag(id string) (*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tags[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ListTags(workspaceID string) ([]models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Tag
	for _, t := range s.tags {
		if t.WorkspaceID == workspaceID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateTag(t *models.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tags[t.ID]; !ok {
		return ErrNotFound
	}
	for _, existing := range s.tags {
		if existing.ID != t.ID && existing.WorkspaceID == t.WorkspaceID && existing.Name == t.Name {
			return ErrConflict
		}
	}
	t.UpdatedAt = time.Now()
	cp := *t
	s.tags[t.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteTag(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tags[id]; !ok {
		return ErrNotFound
	}
	delete(s.tags, id)
	// Cascade out of both join tables
	for _, set := range s.taskTags {
		delete(set, id)
	}
	for _, set := range s.noteTags {
		delete(set, id)
	}
	return nil
}

func (s *MemoryStore) HealthCheck() error { return nil }

func (s *MemoryStore) Close() error { return nil }
