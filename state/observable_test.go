package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValue_SubscribeReceivesCurrent(t *testing.T) {
	v := NewValue(1)
	var got []int

	unsubscribe := v.Subscribe(func(n int) { got = append(got, n) })
	v.Set(2)
	v.Update(func(n int) int { return n * 10 })
	unsubscribe()
	v.Set(99)

	require.Equal(t, []int{1, 2, 20}, got)
	require.Equal(t, 99, v.Get())
}

func TestValue_SubscriberOrder(t *testing.T) {
	v := NewValue("a")
	var got []string

	v.Subscribe(func(s string) { got = append(got, "first:"+s) })
	v.Subscribe(func(s string) { got = append(got, "second:"+s) })
	got = nil

	v.Set("b")
	require.Equal(t, []string{"first:b", "second:b"}, got)
}

func TestValue_SubscriberMayRead(t *testing.T) {
	v := NewValue(0)
	var seen int

	v.Subscribe(func(int) { seen = v.Get() })
	v.Set(5)

	require.Equal(t, 5, seen)
}
