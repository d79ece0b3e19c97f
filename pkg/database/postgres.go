package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tarely-backend/pkg/models"

	"github.com/lib/pq"
)

// PostgresStore is the production Store backed by lib/pq.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a pooled connection. Pool limits are sized for a
// serverless deployment.
func NewPostgresStore(dsn string) *PostgresStore {
	dsn = strings.TrimSpace(dsn)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open postgres connection: %v", err))
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		panic(fmt.Sprintf("failed to ping postgres: %v", err))
	}
	return &PostgresStore{db: db}
}

// translate maps driver errors onto the store sentinels so handlers never see
// raw constraint names.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			return ErrConflict
		case "23503": // foreign_key_violation
			return ErrNotFound
		}
	}
	return err
}

func nullStr(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// ==== Users ====

func (s *PostgresStore) CreateUser(user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, name, avatar, avatar_version, has_seen_onboarding, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(query, user.Email, user.Password, user.Name, user.Avatar,
		user.AvatarVersion, user.HasSeenOnboarding, user.IsAdmin).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if e := translate(err); e == ErrConflict {
			return ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(email string) (*models.User, error) {
	query := `
		SELECT id, email, COALESCE(password_hash,''), COALESCE(name,''), COALESCE(avatar,''),
		       avatar_version, has_seen_onboarding, is_admin, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := s.db.QueryRow(query, email).Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Avatar,
		&u.AvatarVersion, &u.HasSeenOnboarding, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(id string) (*models.User, error) {
	query := `
		SELECT id, email, COALESCE(password_hash,''), COALESCE(name,''), COALESCE(avatar,''),
		       avatar_version, has_seen_onboarding, is_admin, created_at, updated_at
		FROM users WHERE id = $1
	`
	var u models.User
	err := s.db.QueryRow(query, id).Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Avatar,
		&u.AvatarVersion, &u.HasSeenOnboarding, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *PostgresStore) UpdateUser(user *models.User) error {
	query := `
		UPDATE users
		SET name = $1, avatar = $2, avatar_version = $3, has_seen_onboarding = $4, updated_at = NOW()
		WHERE id = $5
	`
	res, err := s.db.Exec(query, user.Name, user.Avatar, user.AvatarVersion, user.HasSeenOnboarding, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteUser(id string) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==== Calendar credentials ====

func (s *PostgresStore) SaveCalendarCredentials(creds *models.CalendarCredentials) error {
	query := `
		INSERT INTO calendar_credentials (user_id, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_at = EXCLUDED.expires_at
	`
	_, err := s.db.Exec(query, creds.UserID, creds.AccessToken, creds.RefreshToken, creds.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save calendar credentials: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCalendarCredentials(userID string) (*models.CalendarCredentials, error) {
	var c models.CalendarCredentials
	err := s.db.QueryRow(`SELECT user_id, access_token, refresh_token, expires_at FROM calendar_credentials WHERE user_id = $1`, userID).
		Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// ==== Workspaces ====

func (s *PostgresStore) CreateWorkspace(ws *models.Workspace) error {
	query := `
		INSERT INTO workspaces (owner_id, name, description, instructions, icon, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(query, ws.OwnerID, ws.Name, ws.Description, ws.Instructions, ws.Icon, ws.Color).
		Scan(&ws.ID, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkspace(id string) (*models.Workspace, error) {
	query := `
		SELECT id, owner_id, name, COALESCE(description,''), COALESCE(instructions,''),
		       COALESCE(icon,''), COALESCE(color,''), created_at, updated_at
		FROM workspaces WHERE id = $1
	`
	var ws models.Workspace
	err := s.db.QueryRow(query, id).Scan(&ws.ID, &ws.OwnerID, &ws.Name, &ws.Description,
		&ws.Instructions, &ws.Icon, &ws.Color, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &ws, nil
}

func (s *PostgresStore) UpdateWorkspace(ws *models.Workspace) error {
	query := `
		UPDATE workspaces
		SET name = $1, description = $2, instructions = $3, icon = $4, color = $5, updated_at = NOW()
		WHERE id = $6
	`
	res, err := s.db.Exec(query, ws.Name, ws.Description, ws.Instructions, ws.Icon, ws.Color, ws.ID)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteWorkspace(id string) error {
	// Fan-out delete inside one transaction. Task children (subtasks,
	// comments, attachments, activity, joins) cascade via the task rows.
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`DELETE FROM task_tags WHERE task_id IN (SELECT id FROM tasks WHERE workspace_id = $1)`,
		`DELETE FROM note_tags WHERE note_id IN (SELECT id FROM notes WHERE workspace_id = $1)`,
		`DELETE FROM subtasks WHERE task_id IN (SELECT id FROM tasks WHERE workspace_id = $1)`,
		`DELETE FROM task_comments WHERE task_id IN (SELECT id FROM tasks WHERE workspace_id = $1)`,
		`DELETE FROM task_attachments WHERE task_id IN (SELECT id FROM tasks WHERE workspace_id = $1)`,
		`DELETE FROM task_activity WHERE task_id IN (SELECT id FROM tasks WHERE workspace_id = $1)`,
		`DELETE FROM task_assignees WHERE task_id IN (SELECT id FROM tasks WHERE workspace_id = $1)`,
		`DELETE FROM tasks WHERE workspace_id = $1`,
		`DELETE FROM notes WHERE workspace_id = $1`,
		`DELETE FROM note_folders WHERE workspace_id = $1`,
		`DELETE FROM workspace_tags WHERE workspace_id = $1`,
		`DELETE FROM sections WHERE workspace_id = $1`,
		`DELETE FROM workspace_members WHERE workspace_id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("failed to fan out workspace delete: %w", err)
		}
	}
	res, err := tx.Exec(`DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *PostgresStore) ListWorkspacesForUser(userID string) ([]models.Workspace, error) {
	query := `
		SELECT DISTINCT w.id, w.owner_id, w.name, COALESCE(w.description,''), COALESCE(w.instructions,''),
		       COALESCE(w.icon,''), COALESCE(w.color,''), w.created_at, w.updated_at
		FROM workspaces w
		LEFT JOIN workspace_members m ON m.workspace_id = w.id
		WHERE w.owner_id = $1 OR (m.user_id = $1 AND m.status = 'accepted')
		ORDER BY w.created_at
	`
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()
	var out []models.Workspace
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(&ws.ID, &ws.OwnerID, &ws.Name, &ws.Description, &ws.Instructions,
			&ws.Icon, &ws.Color, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// ==== Members ====

func (s *PostgresStore) CreateMember(m *models.WorkspaceMember) error {
	// At most one row per (workspace, user). A rejected invite is reopened
	// rather than blocking the user forever; pending/accepted rows conflict.
	query := `
		INSERT INTO workspace_members (workspace_id, user_id, role, status, inviter_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (workspace_id, user_id) DO UPDATE
		SET role = EXCLUDED.role, status = EXCLUDED.status, inviter_id = EXCLUDED.inviter_id, updated_at = NOW()
		WHERE workspace_members.status = 'rejected'
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(query, m.WorkspaceID, m.UserID, m.Role, m.Status, m.InviterID).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		// No row back means the DO UPDATE filter skipped a live membership
		if err == sql.ErrNoRows {
			return ErrConflict
		}
		if e := translate(err); e == ErrConflict || e == ErrNotFound {
			return e
		}
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

func scanMember(row interface{ Scan(...interface{}) error }) (*models.WorkspaceMember, error) {
	var m models.WorkspaceMember
	err := row.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.Status, &m.InviterID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

const memberColumns = `id, workspace_id, user_id, role, status, COALESCE(inviter_id,''), created_at, updated_at`

func (s *PostgresStore) GetMember(id string) (*models.WorkspaceMember, error) {
	return scanMember(s.db.QueryRow(`SELECT `+memberColumns+` FROM workspace_members WHERE id = $1`, id))
}

func (s *PostgresStore) GetMemberByWorkspaceAndUser(workspaceID, userID string) (*models.WorkspaceMember, error) {
	return scanMember(s.db.QueryRow(
		`SELECT `+memberColumns+` FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID))
}

func (s *PostgresStore) listMembers(query string, arg interface{}) ([]models.WorkspaceMember, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()
	var out []models.WorkspaceMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListMembers(workspaceID string) ([]models.WorkspaceMember, error) {
	return s.listMembers(`SELECT `+memberColumns+` FROM workspace_members WHERE workspace_id = $1 ORDER BY created_at`, workspaceID)
}

func (s *PostgresStore) ListInvitesForUser(userID string) ([]models.WorkspaceMember, error) {
	return s.listMembers(`SELECT `+memberColumns+` FROM workspace_members WHERE user_id = $1 AND status = 'pending' ORDER BY created_at`, userID)
}

func (s *PostgresStore) UpdateMember(m *models.WorkspaceMember) error {
	res, err := s.db.Exec(`UPDATE workspace_members SET role = $1, status = $2, updated_at = NOW() WHERE id = $3`,
		m.Role, m.Status, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteMember(id string) error {
	res, err := s.db.Exec(`DELETE FROM workspace_members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==== Sections ====

func (s *PostgresStore) CreateSection(sec *models.Section) error {
	query := `
		INSERT INTO sections (workspace_id, name, icon, color, position, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(query, sec.WorkspaceID, sec.Name, sec.Icon, sec.Color, sec.Order, sec.IsSystem).
		Scan(&sec.ID, &sec.CreatedAt, &sec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create section: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSection(id string) (*models.Section, error) {
	query := `
		SELECT id, workspace_id, name, COALESCE(icon,''), COALESCE(color,''), position, is_system, created_at, updated_at
		FROM sections WHERE id = $1
	`
	var sec models.Section
	err := s.db.QueryRow(query, id).Scan(&sec.ID, &sec.WorkspaceID, &sec.Name, &sec.Icon,
		&sec.Color, &sec.Order, &sec.IsSystem, &sec.CreatedAt, &sec.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &sec, nil
}

func (s *PostgresStore) ListSections(workspaceID string) ([]models.Section, error) {
	query := `
		SELECT id, workspace_id, name, COALESCE(icon,''), COALESCE(color,''), position, is_system, created_at, updated_at
		FROM sections WHERE workspace_id = $1 ORDER BY position
	`
	rows, err := s.db.Query(query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()
	var out []models.Section
	for rows.Next() {
		var sec models.Section
		if err := rows.Scan(&sec.ID, &sec.WorkspaceID, &sec.Name, &sec.Icon, &sec.Color,
			&sec.Order, &sec.IsSystem, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateSection(sec *models.Section) error {
	res, err := s.db.Exec(`UPDATE sections SET name = $1, icon = $2, color = $3, position = $4, updated_at = NOW() WHERE id = $5`,
		sec.Name, sec.Icon, sec.Color, sec.Order, sec.ID)
	if err != nil {
		return fmt.Errorf("failed to update section: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteSection(id string) error {
	res, err := s.db.Exec(`DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ReassignSectionTasks(fromSectionID, toSectionID string) error {
	_, err := s.db.Exec(`UPDATE tasks SET section_id = $1, updated_at = NOW() WHERE section_id = $2`,
		toSectionID, fromSectionID)
	if err != nil {
		return fmt.Errorf("failed to reassign section tasks: %w", err)
	}
	return nil
}

// ==== Tasks ====

const taskColumns = `id, workspace_id, section_id, title, COALESCE(description,''), importance,
	due_date, completed, source, recurrence, next_due_at, note_id, created_at, updated_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var t models.Task
	var sectionID, noteID sql.NullString
	var dueDate, nextDueAt sql.NullTime
	var recurrence []byte
	err := row.Scan(&t.ID, &t.WorkspaceID, &sectionID, &t.Title, &t.Description, &t.Importance,
		&dueDate, &t.Completed, &t.Source, &recurrence, &nextDueAt, &noteID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if sectionID.Valid {
		t.SectionID = &sectionID.String
	}
	if noteID.Valid {
		t.NoteID = &noteID.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if nextDueAt.Valid {
		t.NextDueAt = &nextDueAt.Time
	}
	if len(recurrence) > 0 {
		var r models.Recurrence
		if err := json.Unmarshal(recurrence, &r); err == nil {
			t.Recurrence = &r
		}
	}
	return &t, nil
}

func (s *PostgresStore) insertTask(exec interface {
	QueryRow(string, ...interface{}) *sql.Row
}, t *models.Task) error {
	var recurrence interface{}
	if t.Recurrence != nil {
		b, err := json.Marshal(t.Recurrence)
		if err != nil {
			return fmt.Errorf("failed to encode recurrence: %w", err)
		}
		recurrence = b
	}
	if t.Source == "" {
		t.Source = models.SourceManual
	}
	query := `
		INSERT INTO tasks (workspace_id, section_id, title, description, importance, due_date,
		                   completed, source, recurrence, next_due_at, note_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := exec.QueryRow(query, t.WorkspaceID, nullStr(t.SectionID), t.Title, t.Description,
		t.Importance, nullTime(t.DueDate), t.Completed, t.Source, recurrence,
		nullTime(t.NextDueAt), nullStr(t.NoteID)).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateTask(t *models.Task) error {
	return s.insertTask(s.db, t)
}

func (s *PostgresStore) CreateTasks(tasks []*models.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin batch insert: %w", err)
	}
	defer tx.Rollback()
	for _, t := range tasks {
		if err := s.insertTask(tx, t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) GetTask(id string) (*models.Task, error) {
	return scanTask(s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

func (s *PostgresStore) listTasks(query string, args ...interface{}) ([]models.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListTasks(workspaceID string) ([]models.Task, error) {
	return s.listTasks(`SELECT `+taskColumns+` FROM tasks WHERE workspace_id = $1 ORDER BY created_at`, workspaceID)
}

func (s *PostgresStore) ListTasksDueBetween(workspaceID string, from, to time.Time) ([]models.Task, error) {
	return s.listTasks(`SELECT `+taskColumns+` FROM tasks WHERE workspace_id = $1 AND due_date BETWEEN $2 AND $3 ORDER BY due_date`,
		workspaceID, from, to)
}

func (s *PostgresStore) UpdateTask(t *models.Task) error {
	var recurrence interface{}
	if t.Recurrence != nil {
		b, err := json.Marshal(t.Recurrence)
		if err != nil {
			return fmt.Errorf("failed to encode recurrence: %w", err)
		}
		recurrence = b
	}
	query := `
		UPDATE tasks
		SET section_id = $1, title = $2, description = $3, importance = $4, due_date = $5,
		    completed = $6, recurrence = $7, next_due_at = $8, note_id = $9, updated_at = NOW()
		WHERE id = $10
	`
	res, err := s.db.Exec(query, nullStr(t.SectionID), t.Title, t.Description, t.Importance,
		nullTime(t.DueDate), t.Completed, recurrence, nullTime(t.NextDueAt), nullStr(t.NoteID), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTask(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin task delete: %w", err)
	}
	defer tx.Rollback()
	steps := []string{
		`DELETE FROM subtasks WHERE task_id = $1`,
		`DELETE FROM task_comments WHERE task_id = $1`,
		`DELETE FROM task_attachments WHERE task_id = $1`,
		`DELETE FROM task_activity WHERE task_id = $1`,
		`DELETE FROM task_assignees WHERE task_id = $1`,
		`DELETE FROM task_tags WHERE task_id = $1`,
		`UPDATE notes SET task_id = NULL, updated_at = NOW() WHERE task_id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("failed to fan out task delete: %w", err)
		}
	}
	res, err := tx.Exec(`DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ==== Subtasks ====

func (s *PostgresStore) CreateSubtask(st *models.Subtask) error {
	query := `
		INSERT INTO subtasks (task_id, title, completed, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(query, st.TaskID, st.Title, st.Completed, st.Order).
		Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subtask: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSubtask(id string) (*models.Subtask, error) {
	var st models.Subtask
	err := s.db.QueryRow(`SELECT id, task_id, title, completed, position, created_at, updated_at FROM subtasks WHERE id = $1`, id).
		Scan(&st.ID, &st.TaskID, &st.Title, &st.Completed, &st.Order, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (s *PostgresStore) ListSubtasks(taskID string) ([]models.Subtask, error) {
	rows, err := s.db.Query(`SELECT id, task_id, title, completed, position, created_at, updated_at FROM subtasks WHERE task_id = $1 ORDER BY position`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer rows.Close()
	var out []models.Subtask
	for rows.Next() {
		var st models.Subtask
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Title, &st.Completed, &st.Order, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateSubtask(st *models.Subtask) error {
	res, err := s.db.Exec(`UPDATE subtasks SET title = $1, completed = $2, position = $3, updated_at = NOW() WHERE id = $4`,
		st.Title, st.Completed, st.Order, st.ID)
	if err != nil {
		return fmt.Errorf("failed to update subtask: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteSubtask(id string) error {
	res, err := s.db.Exec(`DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subtask: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==== Task tags ====

func (s *PostgresStore) AssignTaskTag(taskID, tagID string) error {
	_, err := s.db.Exec(`INSERT INTO task_tags (task_id, tag_id) VALUES ($1, $2)`, taskID, tagID)
	if err != nil {
		if e := translate(err); e == ErrConflict || e == ErrNotFound {
			return e
		}
		return fmt.Errorf("failed to assign task tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveTaskTag(taskID, tagID string) error {
	res, err := s.db.Exec(`DELETE FROM task_tags WHERE task_id = $1 AND tag_id = $2`, taskID, tagID)
	if err != nil {
		return fmt.Errorf("failed to remove task tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const tagColumns = `id, workspace_id, name, COALESCE(color,''), created_at, updated_at`

func (s *PostgresStore) listTagsQuery(query string, arg interface{}) ([]models.Tag, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()
	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &t.Name, &t.Color, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListTaskTags(taskID string) ([]models.Tag, error) {
	return s.listTagsQuery(`
		SELECT t.id, t.workspace_id, t.name, COALESCE(t.color,''), t.created_at, t.updated_at
		FROM workspace_tags t
		JOIN task_tags tt ON tt.tag_id = t.id
		WHERE tt.task_id = $1 ORDER BY t.name`, taskID)
}

// ==== Assignees ====

func (s *PostgresStore) AssignTask(taskID, userID string) error {
	_, err := s.db.Exec(`INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)`, taskID, userID)
	if err != nil {
		if e := translate(err); e == ErrConflict || e == ErrNotFound {
			return e
		}
		return fmt.Errorf("failed to assign task: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnassignTask(taskID, userID string) error {
	res, err := s.db.Exec(`DELETE FROM task_assignees WHERE task_id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to unassign task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAssignees(taskID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT user_id FROM task_assignees WHERE task_id = $1 ORDER BY user_id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignees: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ==== Comments ====

func (s *PostgresStore) CreateComment(c *models.Comment) error {
	query := `
		INSERT INTO task_comments (task_id, user_id, text, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(query, c.TaskID, c.UserID, c.Text).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(id string) (*models.Comment, error) {
	var c models.Comment
	err := s.db.QueryRow(`SELECT id, task_id, user_id, text, created_at, updated_at FROM task_comments WHERE id = $1`, id).
		Scan(&c.ID, &c.TaskID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *PostgresStore) ListComments(taskID string) ([]models.Comment, error) {
	rows, err := s.db.Query(`SELECT id, task_id, user_id, text, created_at, updated_at FROM task_comments WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()
	var out []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteComment(id string) error {
	res, err := s.db.Exec(`DELETE FROM task_comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==== Attachments ====

func (s *PostgresStore) CreateAttachment(a *models.Attachment) error {
	query := `
		INSERT INTO task_attachments (task_id, user_id, file_name, mime_type, file_type, size_bytes, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`
	err := s.db.QueryRow(query, a.TaskID, a.UserID, a.FileName, a.MimeType, a.FileType, a.SizeBytes, a.StoragePath).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAttachment(id string) (*models.Attachment, error) {
	var a models.Attachment
	err := s.db.QueryRow(`SELECT id, task_id, user_id, file_name, mime_type, file_type, size_bytes, storage_path, created_at FROM task_attachments WHERE id = $1`, id).
		Scan(&a.ID, &a.TaskID, &a.UserID, &a.FileName, &a.MimeType, &a.FileType, &a.SizeBytes, &a.StoragePath, &a.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *PostgresStore) ListAttachments(taskID string) ([]models.Attachment, error) {
	rows, err := s.db.Query(`SELECT id, task_id, user_id, file_name, mime_type, file_type, size_bytes, storage_path, created_at FROM task_attachments WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()
	var out []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &a.FileName, &a.MimeType, &a.FileType, &a.SizeBytes, &a.StoragePath, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteAttachment(id string) error {
	res, err := s.db.Exec(`DELETE FROM task_attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==== Activity ====

func (s *PostgresStore) CreateActivity(a *models.Activity) error {
	query := `
		INSERT INTO task_activity (task_id, user_id, kind, detail, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`
	err := s.db.QueryRow(query, a.TaskID, a.UserID, a.Kind, a.Detail).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActivity(taskID string) ([]models.Activity, error) {
	rows, err := s.db.Query(`SELECT id, task_id, user_id, kind, COALESCE(detail,''), created_at FROM task_activity WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()
	var out []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &a.Kind, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ==== Notes ====

const noteColumns = `id, workspace_id, folder_id, title, COALESCE(icon,''), content, COALESCE(plain_text,''),
	word_count, is_pinned, is_favorite, task_id, completed, completed_at, created_at, updated_at`

func scanNote(row interface{ Scan(...interface{}) error }) (*models.Note, error) {
	var n models.Note
	var folderID, taskID sql.NullString
	var completedAt sql.NullTime
	var content []byte
	err := row.Scan(&n.ID, &n.WorkspaceID, &folderID, &n.Title, &n.Icon, &content, &n.PlainText,
		&n.WordCount, &n.IsPinned, &n.IsFavorite, &taskID, &n.Completed, &completedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if folderID.Valid {
		n.FolderID = &folderID.String
	}
	if taskID.Valid {
		n.TaskID = &taskID.String
	}
	if completedAt.Valid {
		n.CompletedAt = &completedAt.Time
	}
	if len(content) > 0 {
		_ = json.Unmarshal(content, &n.Content)
	}
	return &n, nil
}

func (s *PostgresStore) CreateNote(n *models.Note) error {
	content, err := json.Marshal(n.Content)
	if err != nil {
		return fmt.Errorf("failed to encode note content: %w", err)
	}
	query := `
		INSERT INTO notes (workspace_id, folder_id, title, icon, content, plain_text, word_count,
		                   is_pinned, is_favorite, task_id, completed, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRow(query, n.WorkspaceID, nullStr(n.FolderID), n.Title, n.Icon, content,
		n.PlainText, n.WordCount, n.IsPinned, n.IsFavorite, nullStr(n.TaskID), n.Completed,
		nullTime(n.CompletedAt)).
		Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetNote(id string) (*models.Note, error) {
	return scanNote(s.db.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = $1`, id))
}

func (s *PostgresStore) ListNotes(workspaceID string) ([]models.Note, error) {
	rows, err := s.db.Query(`SELECT `+noteColumns+` FROM notes WHERE workspace_id = $1 ORDER BY created_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()
	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateNote(n *models.Note) error {
	content, err := json.Marshal(n.Content)
	if err != nil {
		return fmt.Errorf("failed to encode note content: %w", err)
	}
	query := `
		UPDATE notes
		SET folder_id = $1, title = $2, icon = $3, content = $4, plain_text = $5, word_count = $6,
		    is_pinned = $7, is_favorite = $8, task_id = $9, completed = $10, completed_at = $11, updated_at = NOW()
		WHERE id = $12
	`
	res, err := s.db.Exec(query, nullStr(n.FolderID), n.Title, n.Icon, content, n.PlainText,
		n.WordCount, n.IsPinned, n.IsFavorite, nullStr(n.TaskID), n.Completed, nullTime(n.CompletedAt), n.ID)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	if nr, _ := res.RowsAffected(); nr == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteNote(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin note delete: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`UPDATE tasks SET note_id = NULL, updated_at = NOW() WHERE note_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear task back-reference: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM note_tags WHERE note_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete note tags: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// LinkNoteTask creates the task and sets both foreign keys in one transaction,
// so a mid-sequence failure can never leave a dangling reference.
func (s *PostgresStore) LinkNoteTask(note *models.Note, task *models.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin link: %w", err)
	}
	defer tx.Rollback()

	var existing sql.NullString
	if err := tx.QueryRow(`SELECT task_id FROM notes WHERE id = $1 FOR UPDATE`, note.ID).Scan(&existing); err != nil {
		return translate(err)
	}
	if existing.Valid {
		return ErrConflict
	}
	task.NoteID = &note.ID
	if err := s.insertTask(tx, task); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE notes SET task_id = $1, updated_at = NOW() WHERE id = $2`, task.ID, note.ID); err != nil {
		return fmt.Errorf("failed to set note task reference: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit link: %w", err)
	}
	note.TaskID = &task.ID
	return nil
}

func (s *PostgresStore) UnlinkNoteTask(noteID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin unlink: %w", err)
	}
	defer tx.Rollback()

	var taskID sql.NullString
	if err := tx.QueryRow(`SELECT task_id FROM notes WHERE id = $1 FOR UPDATE`, noteID).Scan(&taskID); err != nil {
		return translate(err)
	}
	if !taskID.Valid {
		return ErrConflict
	}
	if _, err := tx.Exec(`UPDATE tasks SET note_id = NULL, updated_at = NOW() WHERE id = $1`, taskID.String); err != nil {
		return fmt.Errorf("failed to clear task reference: %w", err)
	}
	if _, err := tx.Exec(`UPDATE notes SET task_id = NULL, updated_at = NOW() WHERE id = $1`, noteID); err != nil {
		return fmt.Errorf("failed to clear note reference: %w", err)
	}
	return tx.Commit()
}

// ==== Note tags ====

func (s *PostgresStore) AssignNoteTag(noteID, tagID string) error {
	_, err := s.db.Exec(`INSERT INTO note_tags (note_id, tag_id) VALUES ($1, $2)`, noteID, tagID)
	if err != nil {
		if e := translate(err); e == ErrConflict || e == ErrNotFound {
			return e
		}
		return fmt.Errorf("failed to assign note tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveNoteTag(noteID, tagID string) error {
	res, err := s.db.Exec(`DELETE FROM note_tags WHERE note_id = $1 AND tag_id = $2`, noteID, tagID)
	if err != nil {
		return fmt.Errorf("failed to remove note tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListNoteTags(noteID string) ([]models.Tag, error) {
	return s.listTagsQuery(`
		SELECT t.id, t.workspace_id, t.name, COALESCE(t.color,''), t.created_at, t.updated_at
		FROM workspace_tags t
		JOIN note_tags nt ON nt.tag_id = t.id
		WHERE nt.note_id = $1 ORDER BY t.name`, noteID)
}

// ==== Folders ====

func (s *PostgresStore) CreateFolder(f *models.NoteFolder) error {
	query := `
		INSERT INTO note_folders (workspace_id, name, icon, color, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(query, f.WorkspaceID, f.Name, f.Icon, f.Color, nullStr(f.ParentID)).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

func scanFolder(row interface{ Scan(...interface{}) error }) (*models.NoteFolder, error) {
	var f models.NoteFolder
	var parentID sql.NullString
	err := row.Scan(&f.ID, &f.WorkspaceID, &f.Name, &f.Icon, &f.Color, &parentID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if parentID.Valid {
		f.ParentID = &parentID.String
	}
	return &f, nil
}

const folderColumns = `id, workspace_id, name, COALESCE(icon,''), COALESCE(color,''), parent_id, created_at, updated_at`

func (s *PostgresStore) GetFolder(id string) (*models.NoteFolder, error) {
	return scanFolder(s.db.QueryRow(`SELECT `+folderColumns+` FROM note_folders WHERE id = $1`, id))
}

func (s *PostgresStore) ListFolders(workspaceID string) ([]models.NoteFolder, error) {
	rows, err := s.db.Query(`SELECT `+folderColumns+` FROM note_folders WHERE workspace_id = $1 ORDER BY created_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()
	var out []models.NoteFolder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateFolder(f *models.NoteFolder) error {
	res, err := s.db.Exec(`UPDATE note_folders SET name = $1, icon = $2, color = $3, parent_id = $4, updated_at = NOW() WHERE id = $5`,
		f.Name, f.Icon, f.Color, nullStr(f.ParentID), f.ID)
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteFolder(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin folder delete: %w", err)
	}
	defer tx.Rollback()
	// Reparent, never cascade note deletion
	if _, err := tx.Exec(`UPDATE notes SET folder_id = NULL, updated_at = NOW() WHERE folder_id = $1`, id); err != nil {
		return fmt.Errorf("failed to reparent notes: %w", err)
	}
	if _, err := tx.Exec(`UPDATE note_folders SET parent_id = NULL, updated_at = NOW() WHERE parent_id = $1`, id); err != nil {
		return fmt.Errorf("failed to reparent folders: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM note_folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ==== Templates ====

func (s *PostgresStore) CreateTemplate(t *models.NoteTemplate) error {
	content, err := json.Marshal(t.Content)
	if err != nil {
		return fmt.Errorf("failed to encode template content: %w", err)
	}
	query := `
		INSERT INTO note_templates (name, description, category, icon, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRow(query, t.Name, t.Description, t.Category, t.Icon, content).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func scanTemplate(row interface{ Scan(...interface{}) error }) (*models.NoteTemplate, error) {
	var t models.NoteTemplate
	var content []byte
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.Icon, &content, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if len(content) > 0 {
		_ = json.Unmarshal(content, &t.Content)
	}
	return &t, nil
}

const templateColumns = `id, name, COALESCE(description,''), COALESCE(category,''), COALESCE(icon,''), content, created_at, updated_at`

func (s *PostgresStore) GetTemplate(id string) (*models.NoteTemplate, error) {
	return scanTemplate(s.db.QueryRow(`SELECT `+templateColumns+` FROM note_templates WHERE id = $1`, id))
}

func (s *PostgresStore) ListTemplates() ([]models.NoteTemplate, error) {
	rows, err := s.db.Query(`SELECT ` + templateColumns + ` FROM note_templates ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()
	var out []models.NoteTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteTemplate(id string) error {
	res, err := s.db.Exec(`DELETE FROM note_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==== Tags ====

func (s *PostgresStore) CreateTag(t *models.Tag) error {
	query := `
		INSERT INTO workspace_tags (workspace_id, name, color, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(query, t.WorkspaceID, t.Name, t.Color).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if e := translate(err); e == ErrConflict {
			return ErrConflict
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTag(id string) (*models.Tag, error) {
	var t models.Tag
	err := s.db.QueryRow(`SELECT `+tagColumns+` FROM workspace_tags WHERE id = $1`, id).
		Scan(&t.ID, &t.WorkspaceID, &t.Name, &t.Color, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *PostgresStore) ListTags(workspaceID string) ([]models.Tag, error) {
	return s.listTagsQuery(`SELECT `+tagColumns+` FROM workspace_tags WHERE workspace_id = $1 ORDER BY created_at`, workspaceID)
}

func (s *PostgresStore) UpdateTag(t *models.Tag) error {
	res, err := s.db.Exec(`UPDATE workspace_tags SET name = $1, color = $2, updated_at = NOW() WHERE id = $3`,
		t.Name, t.Color, t.ID)
	if err != nil {
		if e := translate(err); e == ErrConflict {
			return ErrConflict
		}
		return fmt.Errorf("failed to update tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTag(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tag delete: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM task_tags WHERE tag_id = $1`, id); err != nil {
		return fmt.Errorf("failed to remove tag from tasks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM note_tags WHERE tag_id = $1`, id); err != nil {
		return fmt.Errorf("failed to remove tag from notes: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM workspace_tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *PostgresStore) HealthCheck() error {
	return s.db.Ping()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
