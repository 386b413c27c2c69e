// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package lighthouse

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateFit is returned when the reference correspondences do not
// determine a homography (collinear points, duplicates).
var ErrDegenerateFit = errors.New("lighthouse: degenerate calibration fit")

// Homography is a planar perspective transform, row-major 3x3.
type Homography [9]float64

// EstimateHomography fits the perspective transform mapping src points onto
// dst points by direct linear transformation: each correspondence
// contributes two rows to a homogeneous system whose null space, recovered
// by SVD, is the flattened transform. Four correspondences in general
// position determine it exactly.
func EstimateHomography(src, dst []AnglePair) (Homography, error) {
	if len(src) != len(dst) || len(src) < 4 {
		return Homography{}, fmt.Errorf("lighthouse: need at least 4 point pairs, got %d/%d", len(src), len(dst))
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range src {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return Homography{}, ErrDegenerateFit
	}
	var v mat.Dense
	svd.VTo(&v)

	// The null vector pairs with the smallest singular value: the last
	// column of V.
	var h Homography
	last := v.RawMatrix().Cols - 1
	for i := 0; i < 9; i++ {
		h[i] = v.At(i, last)
	}
	if math.Abs(h[8]) < 1e-12 {
		return Homography{}, ErrDegenerateFit
	}
	for i := range h {
		h[i] /= h[8]
	}
	return h, nil
}

// Project applies the transform to a point.
func (h Homography) Project(p AnglePair) AnglePair {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	return AnglePair{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}
