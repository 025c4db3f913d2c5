// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"math"
	"strconv"
)

const (
	popupWidth  = 700
	popupHeight = 500
	popupName   = "anvil"
)

// WindowMetrics are the screen position and outer size of a browsing
// context.
type WindowMetrics struct {
	ScreenX     float64
	ScreenY     float64
	OuterWidth  float64
	OuterHeight float64
}

// PopupFeatures returns the window features for a width x height popup
// centered horizontally on m and placed at 1/2.5 of its height, never left
// of or above m.
func PopupFeatures(m WindowMetrics, width, height int) string {
	left := math.Round(m.ScreenX) + (m.OuterWidth-float64(width))/2
	top := math.Round(m.ScreenY) + (m.OuterHeight-float64(height))/2.5
	if left < m.ScreenX {
		left = m.ScreenX
	}
	if top < m.ScreenY {
		top = m.ScreenY
	}
	return fmt.Sprintf("width=%d,height=%d,left=%s,top=%s,dialog=yes,dependent=yes,scrollbars=yes,location=yes",
		width, height, formatNumber(left), formatNumber(top))
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
