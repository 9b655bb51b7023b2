package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyukudan/dripgate/internal/domain/condition"
	"github.com/hyukudan/dripgate/internal/domain/course"
	"github.com/hyukudan/dripgate/internal/domain/enrolment"
	"github.com/hyukudan/dripgate/internal/domain/item"
	"github.com/hyukudan/dripgate/internal/domain/user"
	"github.com/hyukudan/dripgate/internal/services/scanner/repo"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeItems struct {
	items []*item.Item
	err   error
}

func (f *fakeItems) FindGated(context.Context) ([]*item.Item, error) { return f.items, f.err }

type enrolKey struct{ courseID, userID int64 }

type fakeEnrolments struct {
	first      map[enrolKey]time.Time
	periods    map[enrolKey][]enrolment.Period
	periodsErr map[enrolKey]error
	users      map[int64][]*user.User
	usersErr   map[int64]error

	firstCalls int
}

func (f *fakeEnrolments) FirstEnrolment(_ context.Context, courseID, userID int64, _ []string) (time.Time, error) {
	f.firstCalls++
	return f.first[enrolKey{courseID, userID}], nil
}

func (f *fakeEnrolments) Periods(_ context.Context, courseID, userID int64, _ []string) ([]enrolment.Period, error) {
	k := enrolKey{courseID, userID}
	if err := f.periodsErr[k]; err != nil {
		return nil, err
	}
	return f.periods[k], nil
}

func (f *fakeEnrolments) EnrolledUsers(_ context.Context, courseID int64) ([]*user.User, error) {
	if err := f.usersErr[courseID]; err != nil {
		return nil, err
	}
	return f.users[courseID], nil
}

type fakeCourses struct {
	courses map[int64]*course.Course
	err     map[int64]error
}

func (f *fakeCourses) GetByID(_ context.Context, id int64) (*course.Course, error) {
	if err := f.err[id]; err != nil {
		return nil, err
	}
	c, ok := f.courses[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return c, nil
}

type pairKey struct{ userID, itemID int64 }

// fakeStore mimics the unique-index claim semantics under a mutex.
type fakeStore struct {
	mu       sync.Mutex
	claimed  map[pairKey]time.Time
	claimErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{claimed: make(map[pairKey]time.Time)}
}

func (f *fakeStore) TryClaim(_ context.Context, userID, itemID int64, at time.Time) (bool, error) {
	if f.claimErr != nil {
		return false, f.claimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := pairKey{userID, itemID}
	if _, ok := f.claimed[k]; ok {
		return false, nil
	}
	f.claimed[k] = at
	return true, nil
}

func (f *fakeStore) Exists(_ context.Context, userID, itemID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.claimed[pairKey{userID, itemID}]
	return ok, nil
}

func (f *fakeStore) SweepBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, at := range f.claimed {
		if at.Before(cutoff) {
			delete(f.claimed, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) SweepOrphans(context.Context) (int64, error) { return 0, nil }

type sentMail struct {
	userID int64
	itemID int64
}

type fakeDispatch struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[int64]bool
}

func (f *fakeDispatch) Deliver(_ context.Context, to *user.User, it *item.Item) error {
	if f.failTo[to.ID] {
		return errors.New("smtp down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{userID: to.ID, itemID: it.ID})
	return nil
}

func gatedItem(id, courseID int64, s condition.Structure) *item.Item {
	return &item.Item{
		ID:         id,
		CourseID:   courseID,
		Name:       fmt.Sprintf("Item %d", id),
		CourseName: fmt.Sprintf("Course %d", courseID),
		Condition:  condition.New(s),
	}
}

func newTestUC(items *fakeItems, enr *fakeEnrolments, crs *fakeCourses, store *fakeStore, disp Deliverer) *Usecase {
	return NewUC(
		repo.Items{R: items},
		repo.Enrolments{R: enr},
		repo.Courses{R: crs},
		repo.Store{R: store},
		disp,
		fixedClock{t: testNow},
		zap.NewNop(),
	)
}

func TestScanNotifiesUnlockedPairsOnce(t *testing.T) {
	items := &fakeItems{items: []*item.Item{
		gatedItem(10, 1, condition.Structure{Mode: "coursedays", Unit: "days", Value: 3}),
	}}
	enr := &fakeEnrolments{
		first: map[enrolKey]time.Time{
			{1, 100}: testNow.Add(-5 * 24 * time.Hour), // past the gate
			{1, 101}: testNow.Add(-1 * 24 * time.Hour), // still locked
		},
		users: map[int64][]*user.User{1: {
			{ID: 100, FirstName: "Ada", Email: "ada@example.com"},
			{ID: 101, FirstName: "Ben", Email: "ben@example.com"},
		}},
	}
	crs := &fakeCourses{courses: map[int64]*course.Course{1: {ID: 1, FullName: "Course 1"}}}
	store := newFakeStore()
	disp := &fakeDispatch{}
	uc := newTestUC(items, enr, crs, store, disp)

	rep, err := uc.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, rep.Notified)
	require.Zero(t, rep.Errors)
	require.Equal(t, []sentMail{{userID: 100, itemID: 10}}, disp.sent)

	// Second pass: the settled pair is skipped, the locked one re-checked.
	rep, err = uc.Scan(context.Background())
	require.NoError(t, err)
	require.Zero(t, rep.Notified)
	require.Equal(t, 1, rep.Skipped)
	require.Len(t, disp.sent, 1)
}

func TestScanItemFailureDoesNotAbortPass(t *testing.T) {
	items := &fakeItems{items: []*item.Item{
		gatedItem(10, 1, condition.Structure{Mode: "subscriptiondays", Unit: "days", Value: 1}),
		gatedItem(11, 1, condition.Structure{Mode: "coursedays", Unit: "days", Value: 0}),
	}}
	enr := &fakeEnrolments{
		first:      map[enrolKey]time.Time{{1, 100}: testNow.Add(-time.Hour)},
		periodsErr: map[enrolKey]error{{1, 100}: errors.New("enrolment table gone")},
		users:      map[int64][]*user.User{1: {{ID: 100, Email: "ada@example.com"}}},
	}
	crs := &fakeCourses{courses: map[int64]*course.Course{1: {ID: 1}}}
	store := newFakeStore()
	disp := &fakeDispatch{}
	uc := newTestUC(items, enr, crs, store, disp)

	rep, err := uc.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, rep.Errors)
	// Item 11 was still evaluated and claimed.
	require.Equal(t, 1, rep.Notified)
	require.Equal(t, []sentMail{{userID: 100, itemID: 11}}, disp.sent)
}

func TestScanCourseFailureDoesNotAbortPass(t *testing.T) {
	items := &fakeItems{items: []*item.Item{
		gatedItem(10, 1, condition.Structure{Mode: "coursedays", Unit: "days", Value: 0}),
		gatedItem(20, 2, condition.Structure{Mode: "coursedays", Unit: "days", Value: 0}),
	}}
	enr := &fakeEnrolments{
		first: map[enrolKey]time.Time{{2, 200}: testNow.Add(-time.Hour)},
		users: map[int64][]*user.User{
			1: {{ID: 100, Email: "ada@example.com"}},
			2: {{ID: 200, Email: "cyd@example.com"}},
		},
	}
	crs := &fakeCourses{
		courses: map[int64]*course.Course{2: {ID: 2}},
		err:     map[int64]error{1: errors.New("course fetch failed")},
	}
	store := newFakeStore()
	disp := &fakeDispatch{}
	uc := newTestUC(items, enr, crs, store, disp)

	rep, err := uc.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, rep.Errors)
	require.Equal(t, []sentMail{{userID: 200, itemID: 20}}, disp.sent)
}

func TestScanDeliveryFailureKeepsClaim(t *testing.T) {
	items := &fakeItems{items: []*item.Item{
		gatedItem(10, 1, condition.Structure{Mode: "coursedays", Unit: "days", Value: 0}),
	}}
	enr := &fakeEnrolments{
		first: map[enrolKey]time.Time{{1, 100}: testNow.Add(-time.Hour)},
		users: map[int64][]*user.User{1: {{ID: 100, Email: "ada@example.com"}}},
	}
	crs := &fakeCourses{courses: map[int64]*course.Course{1: {ID: 1}}}
	store := newFakeStore()
	disp := &fakeDispatch{failTo: map[int64]bool{100: true}}
	uc := newTestUC(items, enr, crs, store, disp)

	rep, err := uc.Scan(context.Background())
	require.NoError(t, err)
	require.Zero(t, rep.Notified)
	require.Equal(t, 1, rep.Errors)

	// The claim stands: the pair is never re-delivered on later passes.
	claimed, err := store.Exists(context.Background(), 100, 10)
	require.NoError(t, err)
	require.True(t, claimed)

	disp.failTo = nil
	rep, err = uc.Scan(context.Background())
	require.NoError(t, err)
	require.Zero(t, rep.Notified)
	require.Empty(t, disp.sent)
}

func TestScanUserIndependentConditionEvaluatedPerItem(t *testing.T) {
	lockedFrom := testNow.Add(time.Hour)
	openFrom := testNow.Add(-time.Hour)
	items := &fakeItems{items: []*item.Item{
		gatedItem(10, 1, condition.Structure{Mode: "daterange", FromDate: lockedFrom.Unix()}),
		gatedItem(11, 1, condition.Structure{Mode: "daterange", FromDate: openFrom.Unix()}),
	}}
	enr := &fakeEnrolments{users: map[int64][]*user.User{1: {
		{ID: 100, Email: "ada@example.com"},
		{ID: 101, Email: "ben@example.com"},
	}}}
	crs := &fakeCourses{courses: map[int64]*course.Course{1: {ID: 1}}}
	store := newFakeStore()
	disp := &fakeDispatch{}
	uc := newTestUC(items, enr, crs, store, disp)

	rep, err := uc.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, rep.Notified)
	require.ElementsMatch(t, []sentMail{
		{userID: 100, itemID: 11},
		{userID: 101, itemID: 11},
	}, disp.sent)
	// No per-user facts are fetched for user-independent gates.
	require.Zero(t, enr.firstCalls)
}

func TestScanCourseWithoutUsers(t *testing.T) {
	items := &fakeItems{items: []*item.Item{
		gatedItem(10, 1, condition.Structure{Mode: "coursedays", Unit: "days", Value: 0}),
	}}
	enr := &fakeEnrolments{users: map[int64][]*user.User{}}
	crs := &fakeCourses{courses: map[int64]*course.Course{1: {ID: 1}}}
	uc := newTestUC(items, enr, crs, newFakeStore(), &fakeDispatch{})

	rep, err := uc.Scan(context.Background())
	require.NoError(t, err)
	require.Zero(t, rep.Notified)
	require.Zero(t, rep.Errors)
}

func TestScanFindItemsFailureIsFatal(t *testing.T) {
	items := &fakeItems{err: errors.New("db down")}
	uc := newTestUC(items, &fakeEnrolments{}, &fakeCourses{}, newFakeStore(), &fakeDispatch{})

	_, err := uc.Scan(context.Background())
	require.Error(t, err)
}

func TestTryClaimExclusiveUnderConcurrency(t *testing.T) {
	store := newFakeStore()

	const workers = 32
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		claims int
		losses int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := store.TryClaim(context.Background(), 100, 10, testNow)
			require.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if claimed {
				claims++
			} else {
				losses++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, claims)
	require.Equal(t, workers-1, losses)
}

func TestConcurrentScansNotifyOnce(t *testing.T) {
	items := &fakeItems{items: []*item.Item{
		gatedItem(10, 1, condition.Structure{Mode: "coursedays", Unit: "days", Value: 0}),
	}}
	enr := &fakeEnrolments{
		first: map[enrolKey]time.Time{{1, 100}: testNow.Add(-time.Hour)},
		users: map[int64][]*user.User{1: {{ID: 100, Email: "ada@example.com"}}},
	}
	crs := &fakeCourses{courses: map[int64]*course.Course{1: {ID: 1}}}
	store := newFakeStore()
	disp := &fakeDispatch{}
	uc := newTestUC(items, enr, crs, store, disp)

	const passes = 8
	var wg sync.WaitGroup
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Scan(context.Background())
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	// Overlapping passes race on the claim; only one wins.
	require.Len(t, disp.sent, 1)
}
