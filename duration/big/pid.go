/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package big

import (
	"context"
)

// pidRange mirrors the step generator in the parent duration package; see
// duration/pid.go for the rationale. Kept duplicated rather than shared
// since both are unexported and the packages are siblings, not importers
// of each other.
type pidRange struct {
	rateP float64
	rateI float64
	rateD float64
}

func newPIDRange(rateP, rateI, rateD float64) pidRange {
	return pidRange{rateP: rateP, rateI: rateI, rateD: rateD}
}

func (p pidRange) RangeCtx(ctx context.Context, start, end float64) []float64 {
	var (
		res   = []float64{start}
		cur   = start
		last  = 0.0
		integ = 0.0
		dir   = 1.0
	)

	if end < start {
		dir = -1.0
	} else if end == start {
		return []float64{start, end}
	}

	for i := 0; i < 64; i++ {
		select {
		case <-ctx.Done():
			return res
		default:
		}

		errv := (end - cur) * dir
		if errv <= 0 {
			break
		}

		integ += errv
		deriv := errv - last
		last = errv

		step := p.rateP*errv + p.rateI*integ + p.rateD*deriv
		if step <= 0 {
			step = errv / 2
		}

		cur += step * dir
		if dir > 0 && cur >= end {
			cur = end
			res = append(res, cur)
			break
		}
		if dir < 0 && cur <= end {
			cur = end
			res = append(res, cur)
			break
		}

		res = append(res, cur)
	}

	if res[len(res)-1] != end {
		res = append(res, end)
	}

	return res
}
