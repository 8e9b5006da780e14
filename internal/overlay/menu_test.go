package overlay

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kulhadcafe.in/site/internal/nav"
)

// docLock records every write to the document scroll flag.
type docLock struct {
	locked bool
	writes []bool
}

func (d *docLock) SetScrollLocked(locked bool) {
	d.locked = locked
	d.writes = append(d.writes, locked)
}

func TestOpenCloseTracksScrollLock(t *testing.T) {
	t.Parallel()

	lock := &docLock{locked: true}
	m := New(lock, nav.Main)
	m.Mount()
	require.False(t, m.IsOpen())
	require.False(t, lock.locked, "mount starts unlocked")

	m.Open()
	require.True(t, m.IsOpen())
	require.True(t, lock.locked)

	m.Close()
	require.False(t, m.IsOpen())
	require.False(t, lock.locked)
}

func TestScrollLockFollowsLatestState(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	lock := &docLock{}
	m := New(lock, nav.Main)
	m.Mount()
	defer m.Unmount()

	for i := 0; i < 500; i++ {
		switch rng.IntN(5) {
		case 0:
			m.Open()
		case 1:
			m.Close()
		case 2:
			m.SetOpen(rng.IntN(2) == 0)
		case 3:
			m.Activate(SurfaceTarget())
		case 4:
			m.Activate(LinkTarget(rng.IntN(len(nav.Main))))
		}
		require.Equal(t, m.IsOpen(), lock.locked, "step %d", i)
	}
}

func TestTeardownWhileOpenReleasesLock(t *testing.T) {
	t.Parallel()

	lock := &docLock{}
	m := New(lock, nav.Main)
	m.Mount()
	m.Open()
	require.True(t, lock.locked)

	m.Unmount()
	require.False(t, lock.locked)
	require.False(t, m.IsOpen())

	m.Open()
	require.False(t, lock.locked, "an unmounted menu cannot take the lock")
	m.Unmount()
	require.False(t, lock.locked)
}

func TestMountIsIdempotent(t *testing.T) {
	t.Parallel()

	lock := &docLock{}
	m := New(lock, nav.Main)
	var seen []bool
	m.OnChange(func(open bool) { seen = append(seen, open) })

	m.Mount()
	m.Open()
	m.Mount()
	require.True(t, m.IsOpen(), "a second mount must not silently close the menu")
	require.True(t, lock.locked)
	require.Equal(t, []bool{true}, seen)

	m.Close()
	require.Equal(t, []bool{true, false}, seen)
	require.False(t, lock.locked)
}

func TestWithMenuReleasesOnEveryExit(t *testing.T) {
	t.Parallel()

	lock := &docLock{}
	errBoom := errors.New("boom")
	err := WithMenu(lock, nav.Main, func(m *Menu) error {
		m.Open()
		require.True(t, lock.locked)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	require.False(t, lock.locked)

	require.Panics(t, func() {
		_ = WithMenu(lock, nav.Main, func(m *Menu) error {
			m.Open()
			panic("render failed")
		})
	})
	require.False(t, lock.locked, "lock must not outlive a panicking owner")
}

func TestActivateClosesOnce(t *testing.T) {
	t.Parallel()

	lock := &docLock{}
	m := New(lock, nav.Main)
	m.Mount()
	defer m.Unmount()

	closes := 0
	m.OnChange(func(open bool) {
		if !open {
			closes++
		}
	})

	m.Open()
	href, ok := m.Activate(LinkTarget(3))
	require.True(t, ok)
	require.Equal(t, "#timeline", href)
	require.False(t, m.IsOpen())
	require.Equal(t, 1, closes)

	// A click that bubbled to the surface after the link closed the menu is ignored.
	href, ok = m.Activate(SurfaceTarget())
	require.False(t, ok)
	require.Empty(t, href)
	require.Equal(t, 1, closes)

	m.Open()
	_, ok = m.Activate(CloseTarget())
	require.False(t, ok)
	require.Equal(t, 2, closes)

	m.Open()
	_, ok = m.Activate(SurfaceTarget())
	require.False(t, ok)
	require.Equal(t, 3, closes)
	require.Equal(t, []bool{false, true, false, true, false, true, false}, lock.writes)
}

func TestActivateUnknownLinkKeepsMenuOpen(t *testing.T) {
	t.Parallel()

	m := New(nil, nav.Main)
	m.Mount()
	m.Open()
	_, ok := m.Activate(LinkTarget(len(nav.Main)))
	require.False(t, ok)
	require.True(t, m.IsOpen())
	_, ok = m.Activate(LinkTarget(-1))
	require.False(t, ok)
	require.True(t, m.IsOpen())
}

func TestLinksAreCopied(t *testing.T) {
	t.Parallel()

	src := nav.Clone(nav.Main)
	m := New(nil, src)
	src[0].Href = "#elsewhere"
	links := m.Links()
	require.Equal(t, "#home", links[0].Href)
	links[1].Href = "#mutated"
	require.Equal(t, "#about", m.Links()[1].Href)
}

func TestRevealSchedule(t *testing.T) {
	t.Parallel()

	m := New(nil, nav.Main[:3])
	require.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}, m.Reveal(true))
	require.Equal(t, []time.Duration{
		100 * time.Millisecond,
		50 * time.Millisecond,
		0,
	}, m.Reveal(false))
	require.Nil(t, RevealSchedule(0, true))
}

func TestTargetKindString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "surface", TargetSurface.String())
	require.Equal(t, "close", TargetClose.String())
	require.Equal(t, "link", TargetLink.String())
	require.Equal(t, "TargetKind(9)", TargetKind(9).String())
}
