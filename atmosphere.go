/*
Copyright © 2018 the cmorfix authors.
This file is part of cmorfix.

cmorfix is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cmorfix is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cmorfix.  If not, see <http://www.gnu.org/licenses/>.
*/

package cmorfix

import (
	"gonum.org/v1/gonum/interp"
)

// usStandardAtmosphere holds the pressure [Pa] of the 1976 US standard
// atmosphere at geometric altitudes [m].
var usStandardAtmosphere = [][2]float64{
	{-1000, 113929},
	{-500, 107478},
	{0, 101325},
	{500, 95461},
	{1000, 89876},
	{1500, 84559},
	{2000, 79501},
	{2500, 74691},
	{3000, 70121},
	{3500, 65780},
	{4000, 61660},
	{4500, 57752},
	{5000, 54048},
	{6000, 47218},
	{7000, 41105},
	{8000, 35652},
	{9000, 30801},
	{10000, 26500},
	{11000, 22700},
	{12000, 19399},
	{13000, 16580},
	{14000, 14170},
	{15000, 12112},
	{16000, 10353},
	{17000, 8850},
	{18000, 7565},
	{19000, 6468},
	{20000, 5529},
	{25000, 2549},
	{30000, 1197},
	{35000, 574.6},
	{40000, 287.1},
	{45000, 149.1},
	{50000, 79.78},
	{60000, 21.96},
	{70000, 5.221},
	{80000, 1.052},
}

type altitudeToPressure struct {
	spline interp.NotAKnotCubic
	x, y   []float64
}

var standardAtmosphere = newAltitudeToPressure()

func newAltitudeToPressure() *altitudeToPressure {
	a := new(altitudeToPressure)
	for _, p := range usStandardAtmosphere {
		a.x = append(a.x, p[0])
		a.y = append(a.y, p[1])
	}
	if err := a.spline.Fit(a.x, a.y); err != nil {
		panic(err)
	}
	return a
}

func (a *altitudeToPressure) predict(z float64) float64 {
	n := len(a.x)
	switch {
	case z < a.x[0]:
		return a.y[0] + (z-a.x[0])*(a.y[1]-a.y[0])/(a.x[1]-a.x[0])
	case z > a.x[n-1]:
		return a.y[n-1] + (z-a.x[n-1])*(a.y[n-1]-a.y[n-2])/(a.x[n-1]-a.x[n-2])
	}
	return a.spline.Predict(z)
}

// AltitudeToPressure returns the air pressure [Pa] of the US standard
// atmosphere at altitude z [m]. Values are interpolated with a cubic
// spline and extrapolated linearly outside of -1 km to 80 km.
func AltitudeToPressure(z float64) float64 {
	return standardAtmosphere.predict(z)
}
