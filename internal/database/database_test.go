package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/frc5024/fieldsim/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   uint
	Name string
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		Username: "u",
		Password: "p",
		Database: "fieldsim",
	})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=fieldsim sslmode=disable", dsn)

	dsn = PostgresDSN(config.DatabaseConfig{Host: "db", SSLMode: "require"})
	assert.True(t, strings.HasSuffix(dsn, "sslmode=require"))
}

func TestMemoryDSN_Unique(t *testing.T) {
	a, b := MemoryDSN(), MemoryDSN()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "mode=memory")
}

func TestOpenSQLite_MemoryIsolated(t *testing.T) {
	a, err := OpenSQLite("")
	require.NoError(t, err)
	defer Close(a)
	b, err := OpenSQLite("")
	require.NoError(t, err)
	defer Close(b)

	require.NoError(t, a.AutoMigrate(&row{}))
	require.NoError(t, a.Create(&row{Name: "a"}).Error)

	assert.False(t, b.Migrator().HasTable(&row{}))
}

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poses.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{Name: "x"}).Error)
	require.NoError(t, Close(db))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestDumpSQLite(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	defer Close(db)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{Name: "dumped"}).Error)

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, DumpSQLite(db, path))
	// A second dump replaces the first.
	require.NoError(t, DumpSQLite(db, path))

	copyDB, err := OpenSQLite(path)
	require.NoError(t, err)
	defer Close(copyDB)

	var got row
	require.NoError(t, copyDB.First(&got).Error)
	assert.Equal(t, "dumped", got.Name)
}

func TestDumpSQLite_NoPath(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	defer Close(db)

	assert.Error(t, DumpSQLite(db, ""))
}
