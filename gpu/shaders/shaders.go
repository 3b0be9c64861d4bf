// Package shaders holds the WGSL programs that read and write particle
// state textures. Every program is prefixed with common.wgsl so that the
// index/texel mapping exists exactly once on the shader side.
package shaders

import (
	_ "embed"
)

//go:embed common.wgsl
var CommonWGSL string

//go:embed view.wgsl
var ViewWGSL string

//go:embed integrate.wgsl
var integrateWGSL string

//go:embed draw_points.wgsl
var drawPointsWGSL string

//go:embed pick_point.wgsl
var pickPointWGSL string

//go:embed pick_area.wgsl
var pickAreaWGSL string

// WorkgroupSize is the side of the compute workgroups in every compute program.
const WorkgroupSize = 8

func IntegrateSource() string {
	return CommonWGSL + "\n" + integrateWGSL
}

func DrawPointsSource() string {
	return CommonWGSL + "\n" + ViewWGSL + "\n" + drawPointsWGSL
}

func PickPointSource() string {
	return CommonWGSL + "\n" + ViewWGSL + "\n" + pickPointWGSL
}

func PickAreaSource() string {
	return CommonWGSL + "\n" + ViewWGSL + "\n" + pickAreaWGSL
}

// Sources lists every program by label.
func Sources() map[string]string {
	return map[string]string{
		"integrate":   IntegrateSource(),
		"draw_points": DrawPointsSource(),
		"pick_point":  PickPointSource(),
		"pick_area":   PickAreaSource(),
	}
}
