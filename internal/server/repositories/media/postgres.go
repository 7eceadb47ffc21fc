package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mpopescu/famvault/internal/common"
	"github.com/mpopescu/famvault/internal/cryptox"
	"github.com/mpopescu/famvault/internal/dbx"
	"github.com/mpopescu/famvault/internal/server/models"
)

const mediaColumns = `id, description, persons, story, storage_key, file_type, created_at`

// PostgresRepository implements Repository over dbx.DBTX, encrypting
// protected fields with the given cipher.
type PostgresRepository struct {
	db     dbx.DBTX
	cipher *cryptox.SearchableCipher
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX, cipher *cryptox.SearchableCipher) *PostgresRepository {
	return &PostgresRepository{db: db, cipher: cipher}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	encDescription, err := r.cipher.Encrypt(m.Description)
	if err != nil {
		return nil, fmt.Errorf("encrypt error: %w", err)
	}
	encStory, err := r.cipher.Encrypt(m.Story)
	if err != nil {
		return nil, fmt.Errorf("encrypt error: %w", err)
	}
	encPersons, err := r.encryptPersons(m.Persons)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO media (description, persons, story, storage_key, file_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		encDescription, encPersons, encStory, m.StorageKey, m.FileType).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Media, error) {
	return r.findOne(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByStorageKey(ctx context.Context, key string) (*models.Media, error) {
	return r.findOne(ctx, `SELECT `+mediaColumns+` FROM media WHERE storage_key = $1`, key)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.Media, error) {
	m, persons := &models.Media{}, []byte(nil)
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&m.ID, &m.Description, &persons, &m.Story, &m.StorageKey, &m.FileType, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, r.decode(m, persons)
}

func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]*models.Media, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	query := `SELECT ` + mediaColumns + ` FROM media ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	items, err := r.queryMedia(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Media, error) {
	return r.queryMedia(ctx, `SELECT `+mediaColumns+` FROM media ORDER BY created_at DESC`)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// --- helpers ---

func (r *PostgresRepository) queryMedia(ctx context.Context, query string, args ...any) ([]*models.Media, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Media
	for rows.Next() {
		m, persons := &models.Media{}, []byte(nil)
		if err := rows.Scan(&m.ID, &m.Description, &persons, &m.Story,
			&m.StorageKey, &m.FileType, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := r.decode(m, persons); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// encryptPersons encrypts each person name separately and packs the
// ciphertexts into a JSON array for the jsonb column.
func (r *PostgresRepository) encryptPersons(persons []string) ([]byte, error) {
	enc := make([]string, 0, len(persons))
	for _, p := range persons {
		ct, err := r.cipher.Encrypt(p)
		if err != nil {
			return nil, fmt.Errorf("encrypt error: %w", err)
		}
		enc = append(enc, ct)
	}
	b, err := json.Marshal(enc)
	if err != nil {
		return nil, fmt.Errorf("marshal error: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) decode(m *models.Media, personsJSON []byte) error {
	description, err := r.cipher.Decrypt(m.Description)
	if err != nil {
		return fmt.Errorf("decrypt error: %w", err)
	}
	story, err := r.cipher.Decrypt(m.Story)
	if err != nil {
		return fmt.Errorf("decrypt error: %w", err)
	}
	m.Description = description
	m.Story = story

	var enc []string
	if len(personsJSON) > 0 {
		if err := json.Unmarshal(personsJSON, &enc); err != nil {
			return fmt.Errorf("unmarshal error: %w", err)
		}
	}
	m.Persons = make([]string, 0, len(enc))
	for _, ct := range enc {
		p, err := r.cipher.Decrypt(ct)
		if err != nil {
			return fmt.Errorf("decrypt error: %w", err)
		}
		m.Persons = append(m.Persons, p)
	}
	return nil
}
