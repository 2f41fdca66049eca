package main

import (
	"errors"
	"math"
	"testing"

	tryon "github.com/alankarika/go-tryon"
	"github.com/alankarika/go-tryon/config"
	"github.com/alankarika/go-tryon/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleKey(t *testing.T) {

	s := &tryon.Session{Orbit: scene.NewOrbit(scene.DefaultCamera())}

	assert.False(t, handleKey(keyRight, s))
	assert.InDelta(t, orbitStep, s.Orbit.State().Azimuth, 1e-9)

	assert.False(t, handleKey('w', s))
	assert.InDelta(t, math.Pi/2-orbitStep, s.Orbit.State().Polar, 1e-9)

	assert.False(t, handleKey('+', s))
	assert.InDelta(t, 5*zoomStep, s.Orbit.State().Distance, 1e-9)

	assert.False(t, handleKey('r', s))
	assert.InDelta(t, 0, s.Orbit.State().Azimuth, 1e-9)
	assert.InDelta(t, 5, s.Orbit.State().Distance, 1e-9)

	// no key pressed
	assert.False(t, handleKey(-1, s))

	assert.True(t, handleKey('q', s))
	assert.True(t, handleKey(keyEsc, s))
}

func TestApplyFlags(t *testing.T) {

	c, err := config.Load("")
	require.NoError(t, err)

	require.NoError(t, rootCmd.ParseFlags([]string{
		"--file", "face.mp4", "--index", "454", "--window",
	}))

	require.NoError(t, applyFlags(rootCmd, c))

	assert.Equal(t, "face.mp4", c.Capture.File)
	assert.Equal(t, 454, c.Bridge.Index)
	assert.True(t, c.Server.Window)

	require.NoError(t, rootCmd.ParseFlags([]string{"--backend", "tpu"}))
	assert.True(t, errors.Is(applyFlags(rootCmd, c), config.ErrInvalid))
}
