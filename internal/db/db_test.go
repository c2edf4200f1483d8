package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

func strPtr(s string) *string { return &s }

func createGuest(t *testing.T, database *DB) *models.User {
	t.Helper()
	u, err := NewUserRepository(database).CreateGuest(context.Background())
	require.NoError(t, err)
	return u
}

func TestCreateCappedEvictsEarliestExpiry(t *testing.T) {
	database := openTestDB(t)
	repo := NewRefreshTokenRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	base := time.Now().UTC().Add(time.Hour)
	// Inserted newest-expiry first so insertion order and expiry order disagree.
	for i := 5; i >= 1; i-- {
		exp := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.CreateCapped(ctx, user.ID, hashName(i), &exp, 5))
	}

	exp := base.Add(10 * time.Hour)
	require.NoError(t, repo.CreateCapped(ctx, user.ID, "hash-6", &exp, 5))

	tokens, err := repo.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 5)
	for _, tok := range tokens {
		assert.NotEqual(t, hashName(1), tok.TokenHash)
	}
}

func TestCreateCappedEvictsNullExpiryFirst(t *testing.T) {
	database := openTestDB(t)
	repo := NewRefreshTokenRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	require.NoError(t, repo.CreateCapped(ctx, user.ID, "guest", nil, 2))
	exp := time.Now().UTC().Add(time.Hour)
	require.NoError(t, repo.CreateCapped(ctx, user.ID, "full", &exp, 2))
	require.NoError(t, repo.CreateCapped(ctx, user.ID, "next", &exp, 2))

	_, err := repo.FindByHash(ctx, "guest")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByHash(ctx, "full")
	assert.NoError(t, err)
}

func TestReplaceKeepsExpiryUnlessAsked(t *testing.T) {
	database := openTestDB(t)
	repo := NewRefreshTokenRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	require.NoError(t, repo.CreateCapped(ctx, user.ID, "old", nil, 5))
	later := time.Now().UTC().Add(48 * time.Hour)
	require.NoError(t, repo.Replace(ctx, "old", "new", &later, false))

	tok, err := repo.FindByHash(ctx, "new")
	require.NoError(t, err)
	assert.Nil(t, tok.ExpiresAt)

	require.NoError(t, repo.Replace(ctx, "new", "newer", &later, true))
	tok, err = repo.FindByHash(ctx, "newer")
	require.NoError(t, err)
	require.NotNil(t, tok.ExpiresAt)
	assert.WithinDuration(t, later, *tok.ExpiresAt, time.Second)

	assert.ErrorIs(t, repo.Replace(ctx, "old", "other", nil, false), ErrNotFound)
}

func TestDeleteByHashReportsMissingRow(t *testing.T) {
	database := openTestDB(t)
	repo := NewRefreshTokenRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	require.NoError(t, repo.CreateCapped(ctx, user.ID, "tok", nil, 5))
	require.NoError(t, repo.DeleteByHash(ctx, "tok"))
	assert.ErrorIs(t, repo.DeleteByHash(ctx, "tok"), ErrNotFound)
}

func TestDeleteExpiredSkipsUnboundedTokens(t *testing.T) {
	database := openTestDB(t)
	repo := NewRefreshTokenRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.CreateCapped(ctx, user.ID, "expired", &past, 5))
	require.NoError(t, repo.CreateCapped(ctx, user.ID, "guest", nil, 5))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.FindByHash(ctx, "guest")
	assert.NoError(t, err)
}

func TestUpgradeReportsConflictingColumn(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepository(database)
	ctx := context.Background()

	first := createGuest(t, database)
	second := createGuest(t, database)

	require.NoError(t, users.Upgrade(ctx, first.ID, UpgradeParams{
		Email:        strPtr("a@example.com"),
		Username:     strPtr("alice"),
		PasswordHash: "hash",
	}))

	err := users.Upgrade(ctx, second.ID, UpgradeParams{
		Email:        strPtr("a@example.com"),
		PasswordHash: "hash",
	})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup), "err = %v", err)
	assert.Equal(t, "email", dup.Column)
	assert.ErrorIs(t, err, ErrDuplicate)

	err = users.Upgrade(ctx, second.ID, UpgradeParams{
		Username:     strPtr("alice"),
		PasswordHash: "hash",
	})
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "username", dup.Column)

	// A second upgrade of the same row finds no guest to convert.
	err = users.Upgrade(ctx, first.ID, UpgradeParams{Email: strPtr("b@example.com"), PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := users.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, got.IsGuest)
	assert.Equal(t, "alice", got.GetUsername())
}

func TestUpgradeBoundsGuestSessions(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepository(database)
	tokens := NewRefreshTokenRepository(database)
	ctx := context.Background()

	guest := createGuest(t, database)
	require.NoError(t, tokens.CreateCapped(ctx, guest.ID, "guest-hash", nil, 5))

	expiry := time.Now().UTC().Add(90 * 24 * time.Hour).Truncate(time.Second)
	require.NoError(t, users.Upgrade(ctx, guest.ID, UpgradeParams{
		Username:         strPtr("bounded"),
		PasswordHash:     "hash",
		SessionExpiresAt: expiry,
	}))

	tok, err := tokens.FindByHash(ctx, "guest-hash")
	require.NoError(t, err)
	require.NotNil(t, tok.ExpiresAt)
	assert.WithinDuration(t, expiry, *tok.ExpiresAt, time.Second)
}

func TestUpgradeRollsBackWhenSessionsCannotBeBounded(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepository(database)
	tokens := NewRefreshTokenRepository(database)
	ctx := context.Background()

	guest := createGuest(t, database)
	require.NoError(t, tokens.CreateCapped(ctx, guest.ID, "guest-hash", nil, 5))

	_, err := database.ExecContext(ctx, `CREATE TRIGGER block_token_updates BEFORE UPDATE ON refresh_tokens
        BEGIN SELECT RAISE(ABORT, 'token updates blocked'); END`)
	require.NoError(t, err)

	err = users.Upgrade(ctx, guest.ID, UpgradeParams{
		Username:         strPtr("halfway"),
		PasswordHash:     "hash",
		SessionExpiresAt: time.Now().Add(time.Hour),
	})
	require.Error(t, err)

	got, err := users.FindByID(ctx, guest.ID)
	require.NoError(t, err)
	assert.True(t, got.IsGuest)
	assert.Nil(t, got.Username)

	tok, err := tokens.FindByHash(ctx, "guest-hash")
	require.NoError(t, err)
	assert.Nil(t, tok.ExpiresAt)
}

func newClothing(userID, imageID string) *models.Clothing {
	return &models.Clothing{
		ID:        NewID(),
		Name:      "Red Tee",
		Category:  models.CategoryTShirt,
		Color:     "#FF0000",
		ImageID:   imageID,
		UserID:    userID,
		Seasons:   []models.Season{models.SeasonSummer, models.SeasonAutumn},
		Tags:      []models.Tag{models.TagCasual},
		CreatedAt: time.Now().UTC(),
	}
}

func TestClothingCreateRoundTripsAssociations(t *testing.T) {
	database := openTestDB(t)
	repo := NewClothingRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	c := newClothing(user.ID, "img-1")
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, c.Seasons, got.Seasons)
	assert.ElementsMatch(t, c.Tags, got.Tags)
	assert.Equal(t, models.CategoryTShirt, got.Category)
	assert.Nil(t, got.Description)
}

func TestClothingCreateRejectsClaimedImage(t *testing.T) {
	database := openTestDB(t)
	repo := NewClothingRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newClothing(user.ID, "img-1")))

	dup := newClothing(user.ID, "img-1")
	err := repo.Create(ctx, dup)
	var dupErr *DuplicateError
	require.True(t, errors.As(err, &dupErr), "err = %v", err)
	assert.Equal(t, "image_id", dupErr.Column)

	// The failed insert leaves no association rows behind.
	_, err = repo.FindByID(ctx, dup.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM clothing_seasons WHERE clothing_id = ?`, dup.ID).Scan(&count))
	assert.Zero(t, count)
}

func TestClothingUpdateAppliesSetDeltas(t *testing.T) {
	database := openTestDB(t)
	repo := NewClothingRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	c := newClothing(user.ID, "img-1")
	require.NoError(t, repo.Create(ctx, c))

	c.Seasons = []models.Season{models.SeasonAutumn, models.SeasonWinter}
	c.Tags = nil
	c.Description = strPtr("warm")
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Season{models.SeasonAutumn, models.SeasonWinter}, got.Seasons)
	assert.Empty(t, got.Tags)
	require.NotNil(t, got.Description)
	assert.Equal(t, "warm", *got.Description)
}

func TestClothingListHidesPrivateRowsFromOthers(t *testing.T) {
	database := openTestDB(t)
	repo := NewClothingRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	private := newClothing(user.ID, "img-1")
	public := newClothing(user.ID, "img-2")
	public.IsPublic = true
	public.CreatedAt = private.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Create(ctx, private))
	require.NoError(t, repo.Create(ctx, public))

	all, err := repo.ListByUser(ctx, user.ID, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, public.ID, all[0].ID, "newest first")

	visible, err := repo.ListByUser(ctx, user.ID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, public.ID, visible[0].ID)

	page, err := repo.ListByUser(ctx, user.ID, true, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, private.ID, page[0].ID)
}

func TestFilterOwnedIgnoresForeignAndMissingIDs(t *testing.T) {
	database := openTestDB(t)
	repo := NewClothingRepository(database)
	alice := createGuest(t, database)
	bob := createGuest(t, database)
	ctx := context.Background()

	mine := newClothing(alice.ID, "img-1")
	theirs := newClothing(bob.ID, "img-2")
	require.NoError(t, repo.Create(ctx, mine))
	require.NoError(t, repo.Create(ctx, theirs))

	owned, err := repo.FilterOwned(ctx, alice.ID, []string{mine.ID, theirs.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{mine.ID: true}, owned)
}

func TestOutfitUpdateDiffsClothing(t *testing.T) {
	database := openTestDB(t)
	clothing := NewClothingRepository(database)
	outfits := NewOutfitRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	a := newClothing(user.ID, "img-a")
	b := newClothing(user.ID, "img-b")
	c := newClothing(user.ID, "img-c")
	for _, item := range []*models.Clothing{a, b, c} {
		require.NoError(t, clothing.Create(ctx, item))
	}

	o := &models.Outfit{
		ID:          NewID(),
		Name:        "Weekend",
		UserID:      user.ID,
		ClothingIDs: []string{a.ID, b.ID},
		Seasons:     []models.Season{models.SeasonSpring},
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, outfits.Create(ctx, o))

	o.ClothingIDs = []string{b.ID, c.ID}
	o.IsFavorite = true
	require.NoError(t, outfits.Update(ctx, o))

	got, err := outfits.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, got.ClothingIDs)
	assert.True(t, got.IsFavorite)
	assert.Equal(t, []models.Season{models.SeasonSpring}, got.Seasons)
	assert.Empty(t, got.Tags)
}

func TestCountReferencesSpansAllOwners(t *testing.T) {
	database := openTestDB(t)
	images := NewImageRepository(database)
	users := NewUserRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	require.NoError(t, NewClothingRepository(database).Create(ctx, newClothing(user.ID, "img-1")))
	require.NoError(t, users.UpdateProfilePicture(ctx, user.ID, strPtr("img-2")))

	for id, want := range map[string]int{"img-1": 1, "img-2": 1, "img-3": 0} {
		n, err := images.CountReferences(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, n, id)
	}

	refs, err := images.ListReferences(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	other := createGuest(t, database)
	require.NoError(t, NewClothingRepository(database).Create(ctx, newClothing(other.ID, "img-9")))

	owned, err := images.ListReferencesByOwner(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, ImageRef{Area: AreaClothingImages, ImageID: "img-9", OwnerID: owned[0].OwnerID}, owned[0])
}

func TestDeleteUserCascades(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepository(database)
	tokens := NewRefreshTokenRepository(database)
	clothing := NewClothingRepository(database)
	user := createGuest(t, database)
	ctx := context.Background()

	c := newClothing(user.ID, "img-1")
	require.NoError(t, clothing.Create(ctx, c))
	require.NoError(t, tokens.CreateCapped(ctx, user.ID, "tok", nil, 5))

	require.NoError(t, users.Delete(ctx, user.ID))

	_, err := clothing.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = tokens.FindByHash(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, users.Delete(ctx, user.ID), ErrNotFound)
}

func TestSetDiff(t *testing.T) {
	add, remove := setDiff([]string{"a", "b"}, []string{"b", "c", "c"})
	assert.Equal(t, []string{"c"}, add)
	assert.Equal(t, []string{"a"}, remove)
}

func hashName(i int) string {
	return "hash-" + string(rune('0'+i))
}
