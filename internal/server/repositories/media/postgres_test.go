package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpopescu/famvault/internal/common"
	"github.com/mpopescu/famvault/internal/cryptox"
	"github.com/mpopescu/famvault/internal/server/models"
)

var mediaRows = []string{"id", "description", "persons", "story", "storage_key", "file_type", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *cryptox.SearchableCipher) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cipher, err := cryptox.NewSearchableCipher([]byte("0123456789abcdef0123456789abcdef"), []byte("fedcba9876543210"))
	require.NoError(t, err)
	return NewPostgresRepository(db, cipher), mock, cipher
}

func encPersonsJSON(t *testing.T, c *cryptox.SearchableCipher, persons ...string) []byte {
	t.Helper()
	enc := make([]string, 0, len(persons))
	for _, p := range persons {
		ct, err := c.Encrypt(p)
		require.NoError(t, err)
		enc = append(enc, ct)
	}
	b, err := json.Marshal(enc)
	require.NoError(t, err)
	return b
}

func mustEncrypt(t *testing.T, c *cryptox.SearchableCipher, s string) string {
	t.Helper()
	ct, err := c.Encrypt(s)
	require.NoError(t, err)
	return ct
}

func TestCreate_EncryptsFields(t *testing.T) {
	repo, mock, cipher := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+media`).
		WithArgs(
			mustEncrypt(t, cipher, "picnic by the lake"),
			encPersonsJSON(t, cipher, "Ana", "Mihai"),
			mustEncrypt(t, cipher, "summer 2019"),
			"users/2019/07/abc",
			"image/jpeg",
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("m-1", time.Now()))

	got, err := repo.Create(context.Background(), &models.Media{
		Description: "picnic by the lake",
		Persons:     []string{"Ana", "Mihai"},
		Story:       "summer 2019",
		StorageKey:  "users/2019/07/abc",
		FileType:    "image/jpeg",
	})
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByStorageKey_DecodesFields(t *testing.T) {
	repo, mock, cipher := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM media WHERE storage_key = \$1`).
		WithArgs("users/2019/07/abc").
		WillReturnRows(sqlmock.NewRows(mediaRows).AddRow(
			"m-1",
			mustEncrypt(t, cipher, "picnic"),
			encPersonsJSON(t, cipher, "Ana"),
			mustEncrypt(t, cipher, "story"),
			"users/2019/07/abc",
			"image/jpeg",
			time.Now(),
		))

	got, err := repo.FindByStorageKey(context.Background(), "users/2019/07/abc")
	require.NoError(t, err)
	assert.Equal(t, "picnic", got.Description)
	assert.Equal(t, []string{"Ana"}, got.Persons)
	assert.Equal(t, "story", got.Story)
}

func TestFindByStorageKey_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM media WHERE storage_key = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStorageKey(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindByID(t *testing.T) {
	repo, mock, cipher := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM media WHERE id = \$1`).
		WithArgs("m-1").
		WillReturnRows(sqlmock.NewRows(mediaRows).AddRow(
			"m-1",
			mustEncrypt(t, cipher, "picnic"),
			encPersonsJSON(t, cipher, "Ana"),
			mustEncrypt(t, cipher, "story"),
			"users/2019/07/abc",
			"image/jpeg",
			time.Now(),
		))

	got, err := repo.FindByID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "users/2019/07/abc", got.StorageKey)
	assert.Equal(t, "picnic", got.Description)

	mock.ExpectQuery(`SELECT .* FROM media WHERE id = \$1`).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_ReturnsPageAndTotal(t *testing.T) {
	repo, mock, cipher := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM media`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`SELECT .* FROM media ORDER BY created_at DESC OFFSET \$1 LIMIT \$2`).
		WithArgs(10, 5).
		WillReturnRows(sqlmock.NewRows(mediaRows).AddRow(
			"m-11",
			mustEncrypt(t, cipher, "d"),
			encPersonsJSON(t, cipher),
			mustEncrypt(t, cipher, "s"),
			"k-11", "video/mp4", time.Now(),
		))

	items, total, err := repo.List(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, items, 1)
	assert.Equal(t, "d", items[0].Description)
	assert.Empty(t, items[0].Persons)
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM media WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "ghost"), common.ErrorNotFound)
}
