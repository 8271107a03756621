package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Darkzarich/Smiler-sub000/internal/apperr"
	"github.com/Darkzarich/Smiler-sub000/internal/models"
	"github.com/Darkzarich/Smiler-sub000/internal/store"
)

func seedUser(t *testing.T, stores *store.Stores, name string) *models.User {
	t.Helper()
	user := &models.User{Username: name, Email: name + "@example.com", Password: "x"}
	if err := stores.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return user
}

func seedPost(t *testing.T, stores *store.Stores, authorID uint) *models.Post {
	t.Helper()
	post := &models.Post{Slug: fmt.Sprintf("post-%d", authorID), UserID: authorID, Title: "t", Body: "b"}
	if err := stores.Posts.Create(context.Background(), post); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return post
}

func seedComment(t *testing.T, stores *store.Stores, authorID, postID uint, parentID *uint) *models.Comment {
	t.Helper()
	comment := &models.Comment{PostID: postID, UserID: authorID, ParentID: parentID, Body: "<p>hi</p>"}
	if err := stores.Comments.Create(context.Background(), comment); err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return comment
}

func wantKind(t *testing.T, err error, kind apperr.Kind, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if apperr.KindOf(err) != kind {
		t.Fatalf("expected kind %v, got %v (%v)", kind, apperr.KindOf(err), err)
	}
	if apperr.CodeOf(err) != code {
		t.Fatalf("expected code %s, got %s", code, apperr.CodeOf(err))
	}
}

func TestVoteThenUnvotePostRestoresRatings(t *testing.T) {
	stores := store.NewMemory()
	rating := NewRatingService(stores)
	ctx := context.Background()

	author := seedUser(t, stores, "author")
	voter := seedUser(t, stores, "voter")
	post := seedPost(t, stores, author.ID)

	target, err := rating.Vote(ctx, voter.ID, post.ID, models.TargetPost, false)
	if err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if target.Rating != 1 {
		t.Errorf("expected post rating 1, got %v", target.Rating)
	}
	if !target.Rated.IsRated || target.Rated.Negative {
		t.Errorf("expected positive rated state, got %+v", target.Rated)
	}

	gotAuthor, _ := stores.Users.Get(ctx, author.ID)
	if gotAuthor.Rating != 1 {
		t.Errorf("expected author rating 1, got %v", gotAuthor.Rating)
	}

	record, err := stores.Ledger.Find(ctx, voter.ID, post.ID, models.TargetPost)
	if err != nil || record == nil {
		t.Fatalf("expected ledger record, got %v, %v", record, err)
	}
	if record.Negative {
		t.Error("expected a positive vote record")
	}

	target, err = rating.Unvote(ctx, voter.ID, post.ID, models.TargetPost)
	if err != nil {
		t.Fatalf("Unvote failed: %v", err)
	}
	if target.Rating != 0 {
		t.Errorf("expected post rating back to 0, got %v", target.Rating)
	}
	if target.Rated.IsRated {
		t.Errorf("expected unrated state after unvote, got %+v", target.Rated)
	}

	gotAuthor, _ = stores.Users.Get(ctx, author.ID)
	if gotAuthor.Rating != 0 {
		t.Errorf("expected author rating back to 0, got %v", gotAuthor.Rating)
	}

	record, _ = stores.Ledger.Find(ctx, voter.ID, post.ID, models.TargetPost)
	if record != nil {
		t.Errorf("expected empty ledger after unvote, got %+v", record)
	}
}

func TestCommentDownvoteThenDuplicateVote(t *testing.T) {
	stores := store.NewMemory()
	rating := NewRatingService(stores)
	ctx := context.Background()

	author := seedUser(t, stores, "author")
	voter := seedUser(t, stores, "voter")
	post := seedPost(t, stores, author.ID)
	comment := seedComment(t, stores, author.ID, post.ID, nil)

	target, err := rating.Vote(ctx, voter.ID, comment.ID, models.TargetComment, true)
	if err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if target.Rating != -0.5 {
		t.Errorf("expected comment rating -0.5, got %v", target.Rating)
	}

	_, err = rating.Vote(ctx, voter.ID, comment.ID, models.TargetComment, false)
	wantKind(t, err, apperr.KindForbidden, "ALREADY_RATED")

	got, _ := stores.Comments.Get(ctx, comment.ID)
	if got.Rating != -0.5 {
		t.Errorf("expected comment rating unchanged at -0.5, got %v", got.Rating)
	}
	gotAuthor, _ := stores.Users.Get(ctx, author.ID)
	if gotAuthor.Rating != -0.5 {
		t.Errorf("expected author rating -0.5, got %v", gotAuthor.Rating)
	}
}

func TestSelfVoteRejected(t *testing.T) {
	stores := store.NewMemory()
	rating := NewRatingService(stores)
	ctx := context.Background()

	author := seedUser(t, stores, "author")
	post := seedPost(t, stores, author.ID)

	_, err := rating.Vote(ctx, author.ID, post.ID, models.TargetPost, false)
	wantKind(t, err, apperr.KindForbidden, "SELF_VOTE")

	got, _ := stores.Posts.Get(ctx, post.ID)
	if got.Rating != 0 {
		t.Errorf("expected no rating change, got %v", got.Rating)
	}
	if record, _ := stores.Ledger.Find(ctx, author.ID, post.ID, models.TargetPost); record != nil {
		t.Errorf("expected no ledger record, got %+v", record)
	}
}

func TestUnvoteWithoutVote(t *testing.T) {
	stores := store.NewMemory()
	rating := NewRatingService(stores)

	author := seedUser(t, stores, "author")
	voter := seedUser(t, stores, "voter")
	post := seedPost(t, stores, author.ID)

	_, err := rating.Unvote(context.Background(), voter.ID, post.ID, models.TargetPost)
	wantKind(t, err, apperr.KindForbidden, "NOT_RATED")
}

func TestVoteMissingTarget(t *testing.T) {
	stores := store.NewMemory()
	rating := NewRatingService(stores)

	voter := seedUser(t, stores, "voter")

	_, err := rating.Vote(context.Background(), voter.ID, 42, models.TargetPost, false)
	wantKind(t, err, apperr.KindNotFound, "TARGET_NOT_FOUND")
}

func TestVoteTombstonedComment(t *testing.T) {
	stores := store.NewMemory()
	rating := NewRatingService(stores)
	ctx := context.Background()

	author := seedUser(t, stores, "author")
	voter := seedUser(t, stores, "voter")
	post := seedPost(t, stores, author.ID)
	comment := seedComment(t, stores, author.ID, post.ID, nil)
	if err := stores.Comments.Tombstone(ctx, comment.ID); err != nil {
		t.Fatalf("tombstone: %v", err)
	}

	_, err := rating.Vote(ctx, voter.ID, comment.ID, models.TargetComment, false)
	wantKind(t, err, apperr.KindNotFound, "TARGET_NOT_FOUND")
}

func TestConcurrentDuplicateVotesApplyOnce(t *testing.T) {
	stores := store.NewMemory()
	rating := NewRatingService(stores)
	ctx := context.Background()

	author := seedUser(t, stores, "author")
	voter := seedUser(t, stores, "voter")
	post := seedPost(t, stores, author.ID)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = rating.Vote(ctx, voter.ID, post.ID, models.TargetPost, false)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if apperr.CodeOf(err) != "ALREADY_RATED" {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one vote to land, got %d", succeeded)
	}

	got, _ := stores.Posts.Get(ctx, post.ID)
	if got.Rating != 1 {
		t.Errorf("expected post rating 1, got %v", got.Rating)
	}
}

func TestConcurrentUnvotesRemoveOnce(t *testing.T) {
	stores := store.NewMemory()
	rating := NewRatingService(stores)
	ctx := context.Background()

	author := seedUser(t, stores, "author")
	voter := seedUser(t, stores, "voter")
	post := seedPost(t, stores, author.ID)

	if _, err := rating.Vote(ctx, voter.ID, post.ID, models.TargetPost, false); err != nil {
		t.Fatalf("Vote: %v", err)
	}

	// Ledger.Remove is the race-resolution point: exactly one caller gets
	// the record back, so the reversing delta lands exactly once.
	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = rating.Unvote(ctx, voter.ID, post.ID, models.TargetPost)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if apperr.CodeOf(err) != "NOT_RATED" {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one unvote to land, got %d", succeeded)
	}

	got, _ := stores.Posts.Get(ctx, post.ID)
	if got.Rating != 0 {
		t.Errorf("expected post rating back to 0, got %v", got.Rating)
	}
	gotAuthor, _ := stores.Users.Get(ctx, author.ID)
	if gotAuthor.Rating != 0 {
		t.Errorf("expected author rating back to 0, got %v", gotAuthor.Rating)
	}
}

// ctxCheckedUsers and ctxCheckedPosts fail counter writes on a dead
// context, the way a real driver would.
type ctxCheckedUsers struct{ store.UserStore }

func (s ctxCheckedUsers) AddRating(ctx context.Context, id uint, delta float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.UserStore.AddRating(ctx, id, delta)
}

type ctxCheckedPosts struct{ store.PostStore }

func (s ctxCheckedPosts) AddRating(ctx context.Context, id uint, delta float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.PostStore.AddRating(ctx, id, delta)
}

func TestVoteAppliesCountersAfterContextCancel(t *testing.T) {
	stores := store.NewMemory()
	stores.Users = ctxCheckedUsers{stores.Users}
	stores.Posts = ctxCheckedPosts{stores.Posts}
	rating := NewRatingService(stores)

	author := seedUser(t, stores, "author")
	voter := seedUser(t, stores, "voter")
	post := seedPost(t, stores, author.ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The caller is gone, but once the ledger write lands the counter
	// writes must still run to completion.
	if _, err := rating.Vote(ctx, voter.ID, post.ID, models.TargetPost, false); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}

	got, _ := stores.Posts.Get(context.Background(), post.ID)
	if got.Rating != 1 {
		t.Errorf("expected post rating 1, got %v", got.Rating)
	}
	gotAuthor, _ := stores.Users.Get(context.Background(), author.ID)
	if gotAuthor.Rating != 1 {
		t.Errorf("expected author rating 1, got %v", gotAuthor.Rating)
	}
}

// The rating counters must track the ledger through any completed sequence
// of vote/unvote calls.
func TestRatingTracksLedgerAcrossSequence(t *testing.T) {
	stores := store.NewMemory()
	rating := NewRatingService(stores)
	ctx := context.Background()

	author := seedUser(t, stores, "author")
	voters := []*models.User{
		seedUser(t, stores, "v1"),
		seedUser(t, stores, "v2"),
		seedUser(t, stores, "v3"),
	}
	post := seedPost(t, stores, author.ID)
	comment := seedComment(t, stores, author.ID, post.ID, nil)

	mustVote := func(voterID, targetID uint, kind models.TargetKind, negative bool) {
		t.Helper()
		if _, err := rating.Vote(ctx, voterID, targetID, kind, negative); err != nil {
			t.Fatalf("Vote: %v", err)
		}
	}
	mustUnvote := func(voterID, targetID uint, kind models.TargetKind) {
		t.Helper()
		if _, err := rating.Unvote(ctx, voterID, targetID, kind); err != nil {
			t.Fatalf("Unvote: %v", err)
		}
	}

	mustVote(voters[0].ID, post.ID, models.TargetPost, false)
	mustVote(voters[1].ID, post.ID, models.TargetPost, true)
	mustVote(voters[2].ID, post.ID, models.TargetPost, false)
	mustUnvote(voters[1].ID, post.ID, models.TargetPost)

	// Switch: unvote then vote the other way.
	mustVote(voters[0].ID, comment.ID, models.TargetComment, false)
	mustUnvote(voters[0].ID, comment.ID, models.TargetComment)
	mustVote(voters[0].ID, comment.ID, models.TargetComment, true)
	mustVote(voters[1].ID, comment.ID, models.TargetComment, true)

	gotPost, _ := stores.Posts.Get(ctx, post.ID)
	if gotPost.Rating != 2 {
		t.Errorf("expected post rating 2, got %v", gotPost.Rating)
	}
	gotComment, _ := stores.Comments.Get(ctx, comment.ID)
	if gotComment.Rating != -1 {
		t.Errorf("expected comment rating -1, got %v", gotComment.Rating)
	}
	gotAuthor, _ := stores.Users.Get(ctx, author.ID)
	if gotAuthor.Rating != 1 {
		t.Errorf("expected author rating 1 (2 - 0.5 - 0.5), got %v", gotAuthor.Rating)
	}

	// At most one live record per (voter, target): a probe insert must fail
	// for every pair that still holds a vote.
	livePairs := []struct {
		voterID  uint
		targetID uint
		kind     models.TargetKind
	}{
		{voters[0].ID, post.ID, models.TargetPost},
		{voters[2].ID, post.ID, models.TargetPost},
		{voters[0].ID, comment.ID, models.TargetComment},
		{voters[1].ID, comment.ID, models.TargetComment},
	}
	for _, pair := range livePairs {
		if _, err := stores.Ledger.Record(ctx, pair.voterID, pair.targetID, pair.kind, false); !errors.Is(err, store.ErrDuplicate) {
			t.Errorf("ledger allowed a second live record for voter %d on %s %d", pair.voterID, pair.kind, pair.targetID)
		}
	}
}
