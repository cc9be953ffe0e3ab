package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matsl08/ems-api/internal/models"
)

const userColumns = `id, email, password_hash, name, role, is_active, last_login, created_at, updated_at`

const studentProfileColumns = `user_id, student_id, program_code, year_enrolled, year_level, gender, date_of_birth,
	civil_status, place_of_birth, religion, guardian_name, guardian_role, province_address, city_address,
	email_address, mobile_number, landline_number, other_info`

// UserRepository handles persistence of users, role profiles, refresh tokens
// and audit logs.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns the base user row for an email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the base user row by internal ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByExternalID resolves a user from any role-specific identifier
// (studentId, facultyId or adminId).
func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT u.%s FROM users u
	LEFT JOIN student_profiles sp ON sp.user_id = u.id
	LEFT JOIN teacher_profiles tp ON tp.user_id = u.id
	LEFT JOIN admin_profiles ap ON ap.user_id = u.id
	WHERE sp.student_id = $1 OR tp.faculty_id = $1 OR ap.admin_id = $1
	LIMIT 1`, strings.ReplaceAll(userColumns, ", ", ", u."))
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, externalID); err != nil {
		return nil, err
	}
	if err := r.LoadProfile(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindStudent returns the user holding the given student ID, profile loaded.
// sql.ErrNoRows is returned when no student profile carries the ID.
func (r *UserRepository) FindStudent(ctx context.Context, studentID string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT u.%s FROM users u
	JOIN student_profiles sp ON sp.user_id = u.id
	WHERE sp.student_id = $1 AND u.role = $2`, strings.ReplaceAll(userColumns, ", ", ", u."))
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, studentID, models.RoleStudent); err != nil {
		return nil, err
	}
	if err := r.LoadProfile(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// LoadProfile attaches the role-specific profile row to the user.
func (r *UserRepository) LoadProfile(ctx context.Context, user *models.User) error {
	switch user.Role {
	case models.RoleStudent:
		query := fmt.Sprintf("SELECT %s FROM student_profiles WHERE user_id = $1", studentProfileColumns)
		var profile models.StudentProfile
		if err := r.db.GetContext(ctx, &profile, query, user.ID); err != nil {
			return fmt.Errorf("load student profile: %w", err)
		}
		user.Student = &profile
	case models.RoleTeacher:
		const query = `SELECT user_id, faculty_id, department_code FROM teacher_profiles WHERE user_id = $1`
		var profile models.TeacherProfile
		if err := r.db.GetContext(ctx, &profile, query, user.ID); err != nil {
			return fmt.Errorf("load teacher profile: %w", err)
		}
		user.Teacher = &profile
	case models.RoleAdmin:
		const query = `SELECT user_id, admin_id, position FROM admin_profiles WHERE user_id = $1`
		var profile models.AdminProfile
		if err := r.db.GetContext(ctx, &profile, query, user.ID); err != nil {
			return fmt.Errorf("load admin profile: %w", err)
		}
		user.Admin = &profile
	}
	return nil
}

// List returns users filtered by the provided criteria.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	clause := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		userColumns, clause, size, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users WHERE %s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// ListStudents returns all users with the student role, profiles attached.
func (r *UserRepository) ListStudents(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT u.%s FROM users u
	JOIN student_profiles sp ON sp.user_id = u.id
	WHERE u.role = $1 ORDER BY sp.student_id`, strings.ReplaceAll(userColumns, ", ", ", u."))
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, models.RoleStudent); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	for i := range users {
		if err := r.LoadProfile(ctx, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// Create persists a user and its role profile in one transaction.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user tx: %w", err)
	}

	const userQuery = `INSERT INTO users (id, email, password_hash, name, role, is_active, created_at, updated_at)
	VALUES (:id, :email, :password_hash, :name, :role, :is_active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert user: %w", err)
	}

	if err := insertProfile(ctx, tx, user); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user tx: %w", err)
	}
	return nil
}

func insertProfile(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	switch user.Role {
	case models.RoleStudent:
		user.Student.UserID = user.ID
		query := fmt.Sprintf(`INSERT INTO student_profiles (%s) VALUES (:user_id, :student_id, :program_code,
		:year_enrolled, :year_level, :gender, :date_of_birth, :civil_status, :place_of_birth, :religion,
		:guardian_name, :guardian_role, :province_address, :city_address, :email_address, :mobile_number,
		:landline_number, :other_info)`, studentProfileColumns)
		if _, err := tx.NamedExecContext(ctx, query, user.Student); err != nil {
			return fmt.Errorf("insert student profile: %w", err)
		}
	case models.RoleTeacher:
		user.Teacher.UserID = user.ID
		const query = `INSERT INTO teacher_profiles (user_id, faculty_id, department_code)
		VALUES (:user_id, :faculty_id, :department_code)`
		if _, err := tx.NamedExecContext(ctx, query, user.Teacher); err != nil {
			return fmt.Errorf("insert teacher profile: %w", err)
		}
	case models.RoleAdmin:
		user.Admin.UserID = user.ID
		const query = `INSERT INTO admin_profiles (user_id, admin_id, position)
		VALUES (:user_id, :admin_id, :position)`
		if _, err := tx.NamedExecContext(ctx, query, user.Admin); err != nil {
			return fmt.Errorf("insert admin profile: %w", err)
		}
	}
	return nil
}

// Update persists base fields and the role profile.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update user tx: %w", err)
	}

	const userQuery = `UPDATE users SET email = :email, name = :name, is_active = :is_active, updated_at = :updated_at
	WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update user: %w", err)
	}

	switch {
	case user.Student != nil:
		const query = `UPDATE student_profiles SET program_code = :program_code, year_enrolled = :year_enrolled,
		year_level = :year_level, gender = :gender, date_of_birth = :date_of_birth, civil_status = :civil_status,
		place_of_birth = :place_of_birth, religion = :religion, guardian_name = :guardian_name,
		guardian_role = :guardian_role, province_address = :province_address, city_address = :city_address,
		email_address = :email_address, mobile_number = :mobile_number, landline_number = :landline_number,
		other_info = :other_info WHERE user_id = :user_id`
		if _, err := tx.NamedExecContext(ctx, query, user.Student); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update student profile: %w", err)
		}
	case user.Teacher != nil:
		const query = `UPDATE teacher_profiles SET department_code = :department_code WHERE user_id = :user_id`
		if _, err := tx.NamedExecContext(ctx, query, user.Teacher); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update teacher profile: %w", err)
		}
	case user.Admin != nil:
		const query = `UPDATE admin_profiles SET position = :position WHERE user_id = :user_id`
		if _, err := tx.NamedExecContext(ctx, query, user.Admin); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update admin profile: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update user tx: %w", err)
	}
	return nil
}

// Delete removes a user; profile rows cascade via foreign keys.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the last successful login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a refresh token.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, ip_address, user_agent)
	VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken loads a refresh token by its opaque value.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
	FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var stored models.RefreshToken
	if err := r.db.GetContext(ctx, &stored, query, token); err != nil {
		return nil, err
	}
	return &stored, nil
}

// RevokeRefreshToken marks one token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes every live token for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateAuditLog records an audit event.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at)
	VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
