package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"ddash-backend/pkg/models"
)

func newTestDB(t *testing.T) *SQLDatabase {
	t.Helper()
	db, err := NewMemoryDatabase()
	if err != nil {
		t.Fatalf("NewMemoryDatabase failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, db *SQLDatabase, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", FirstName: "F", LastName: "L", CreatedAt: epoch, UpdatedAt: epoch}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", email, err)
	}
	return u
}

func mustOrg(t *testing.T, db *SQLDatabase, manager *models.User) *models.Organization {
	t.Helper()
	o := &models.Organization{Name: "Acme", ManagerID: manager.ID, CreatedAt: epoch, UpdatedAt: epoch}
	if err := db.CreateOrganization(context.Background(), o); err != nil {
		t.Fatalf("CreateOrganization failed: %v", err)
	}
	return o
}

func TestRebind(t *testing.T) {
	got := dialectPostgres.rebind("SELECT 1 FROM t WHERE a = ? AND b = ? LIMIT ? OFFSET ?")
	want := "SELECT 1 FROM t WHERE a = $1 AND b = $2 LIMIT $3 OFFSET $4"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if q := dialectSQLite.rebind("a = ?"); q != "a = ?" {
		t.Errorf("sqlite must keep ? placeholders, got %q", q)
	}
}

func TestUserEmailUniqueCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "ada@example.com")

	got, err := db.GetUserByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("Expected %s, got %s", u.ID, got.ID)
	}

	dup := &models.User{Email: "ada@example.com", PasswordHash: "x", FirstName: "A", LastName: "B", CreatedAt: epoch, UpdatedAt: epoch}
	if err := db.CreateUser(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	if _, err := db.GetUserByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteOrganizationCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	manager := mustUser(t, db, "m@example.com")
	member := mustUser(t, db, "u@example.com")
	invitee := mustUser(t, db, "i@example.com")
	org := mustOrg(t, db, manager)

	if err := db.AddOrganizationMember(ctx, &models.OrganizationMembership{OrganizationID: org.ID, UserID: member.ID, IsActive: true, CreatedAt: epoch, UpdatedAt: epoch}); err != nil {
		t.Fatalf("AddOrganizationMember failed: %v", err)
	}
	inv := &models.OrganizationInvitation{OrganizationID: org.ID, UserID: invitee.ID, InviterID: manager.ID, Status: models.InvitationPending, CreatedAt: epoch, UpdatedAt: epoch}
	if err := db.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}

	if err := db.DeleteOrganization(ctx, org.ID); err != nil {
		t.Fatalf("DeleteOrganization failed: %v", err)
	}
	if _, err := db.GetMembership(ctx, org.ID, member.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected membership gone, got %v", err)
	}
	if _, err := db.GetInvitation(ctx, inv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected invitation gone, got %v", err)
	}
}

func TestProjectRestrictsOrganizationDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	manager := mustUser(t, db, "m@example.com")
	org := mustOrg(t, db, manager)
	p := &models.Project{OrganizationID: org.ID, Title: "Apollo", CreatedAt: epoch, UpdatedAt: epoch}
	if err := db.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if err := db.DeleteOrganization(ctx, org.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
}

func TestListQueryCountsAndPages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	manager := mustUser(t, db, "m@example.com")
	org := mustOrg(t, db, manager)
	p := &models.Project{OrganizationID: org.ID, Title: "Apollo", CreatedAt: epoch, UpdatedAt: epoch}
	if err := db.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	for i := 0; i < 7; i++ {
		state := models.TaskStateTodo
		if i%2 == 0 {
			state = models.TaskStateBacklog
		}
		ts := epoch.Add(time.Duration(i) * time.Minute)
		task := &models.Task{ProjectID: p.ID, Title: fmt.Sprintf("task %d", i), State: state, CreatedAt: ts, UpdatedAt: ts}
		if err := db.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	all := db.ListProjectTasks(p.ID, nil)
	n, err := all.Count(ctx)
	if err != nil || n != 7 {
		t.Fatalf("Expected 7 tasks, got %d (%v)", n, err)
	}
	page, err := all.Fetch(ctx, 3, 0)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(page) != 3 || page[0].Title != "task 6" {
		t.Errorf("Expected newest first, got %+v", page)
	}

	backlog := models.TaskStateBacklog
	filtered := db.ListProjectTasks(p.ID, &backlog)
	if n, _ := filtered.Count(ctx); n != 4 {
		t.Errorf("Expected 4 backlog tasks, got %d", n)
	}
}

func TestTaskCompletedRequiresFinishDateInSchema(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	manager := mustUser(t, db, "m@example.com")
	org := mustOrg(t, db, manager)
	p := &models.Project{OrganizationID: org.ID, Title: "Apollo", CreatedAt: epoch, UpdatedAt: epoch}
	if err := db.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	task := &models.Task{ProjectID: p.ID, Title: "ship", State: models.TaskStateCompleted, CreatedAt: epoch, UpdatedAt: epoch}
	if err := db.CreateTask(ctx, task); err == nil {
		t.Fatal("Expected schema to reject COMPLETED without finish_date")
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx DatabaseInterface) error {
		u := &models.User{Email: "tx@example.com", PasswordHash: "x", FirstName: "T", LastName: "X", CreatedAt: epoch, UpdatedAt: epoch}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if _, err := db.GetUserByEmail(ctx, "tx@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected rollback to discard the user, got %v", err)
	}
}

func TestMigrationStatus(t *testing.T) {
	db := newTestDB(t)
	status, err := db.GetMigrationStatus()
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != 1 || status.LatestVersion != 1 || status.Pending || status.Dirty {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestPoolReusesConnection(t *testing.T) {
	cfg := DatabaseConfig{UseLocalDB: true, SQLitePath: t.TempDir() + "/pool.db"}
	t.Cleanup(func() { ClosePool() })

	first, err := GetDatabase(cfg)
	if err != nil {
		t.Fatalf("GetDatabase failed: %v", err)
	}
	second, err := GetDatabase(cfg)
	if err != nil {
		t.Fatalf("GetDatabase failed: %v", err)
	}
	if first != second {
		t.Error("Expected the cached instance to be reused")
	}
	if stats := GetConnectionStats(); stats["status"] != "connected" {
		t.Errorf("Expected status connected, got %v", stats["status"])
	}

	if err := ClosePool(); err != nil {
		t.Fatalf("ClosePool failed: %v", err)
	}
	if stats := GetConnectionStats(); stats["status"] != "no_connection" {
		t.Errorf("Expected status no_connection, got %v", stats["status"])
	}
}

func TestMalformedIDMapsToNotFound(t *testing.T) {
	cases := []error{
		&pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"},
		fmt.Errorf("query: %w", &pgconn.PgError{Code: "22P02"}),
	}
	for _, c := range cases {
		if err := notFound("task", c); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for %v, got %v", c, err)
		}
	}
	if err := notFound("task", &pq.Error{Code: "08006"}); errors.Is(err, ErrNotFound) {
		t.Errorf("Connection failures must not read as not found, got %v", err)
	}
}
