package precond

import (
	"math"

	"github.com/skyscan/mapmaker/linalg"
)

// Circulant applies S*C^-1*S in the Fourier domain. S is div^{-1/2};
// iC is the per-component-pair inverse Fourier kernel measured at a
// few reference pixels.
type Circulant struct {
	Ncomp, Ny, Nx int
	S             linalg.BlockField // div^{-1/2}
	ICRe, ICIm    []float64         // [ncomp*ncomp*ny*nxHalf]
	NxHalf        int
}

// ApplyMeasurement is the projector the circulant preconditioner needs
// to measure its Fourier kernel: apply the full A operator (forward
// project, weight, noise-apply, weight, backward project, across
// every scan) to a single pixel's unit impulse and return the
// resulting map.
type ApplyMeasurement interface {
	ApplyUnitImpulse(comp, y, x int) (response []float64)
}

// NewCirculant builds S from div and measures C at nref reference
// pixels picked by PickRefPoints, averaging their rolled-to-origin
// responses before FFTing.
func NewCirculant(div linalg.BlockField, hits []float64, eigLimit float64, am ApplyMeasurement, nref int) *Circulant {
	ncomp, ny, nx := div.Ncomp, div.Ny, div.Nx
	s := linalg.EigPow(div, -0.5, eigLimit)

	refs := PickRefPoints(hits, ny, nx, nref)

	sumRe := make([]float64, ncomp*ncomp*ny*(nx/2+1))
	sumIm := make([]float64, ncomp*ncomp*ny*(nx/2+1))
	nxHalf := nx/2 + 1

	for _, ref := range refs {
		for comp := 0; comp < ncomp; comp++ {
			response := am.ApplyUnitImpulse(comp, ref.Y, ref.X)
			whitened := whitenByS(s, response, ncomp, ny, nx)
			rolled := rollToOrigin(whitened, ncomp, ny, nx, ref.Y, ref.X)

			for outComp := 0; outComp < ncomp; outComp++ {
				plane := rolled[outComp*ny*nx : (outComp+1)*ny*nx]
				re, im, _ := linalg.FFT2Real(plane, ny, nx)
				off := (comp*ncomp + outComp) * ny * nxHalf
				for i := range re {
					sumRe[off+i] += re[i]
					sumIm[off+i] += im[i]
				}
			}
		}
	}

	n := float64(len(refs))
	if n == 0 {
		n = 1
	}
	for i := range sumRe {
		sumRe[i] /= n
		sumIm[i] /= n
	}

	icRe, icIm := invertSpectrum(sumRe, sumIm, ncomp, ny, nxHalf)
	return &Circulant{Ncomp: ncomp, Ny: ny, Nx: nx, S: s, ICRe: icRe, ICIm: icIm, NxHalf: nxHalf}
}

// Apply implements m <- S * F^-1(iC^-1 * F(S*m)) / HW.
func (p *Circulant) Apply(x []float64) {
	npix := p.Ny * p.Nx
	whitened := applyBlock(p.S, x, p.Ncomp, p.Ny, p.Nx)

	specRe := make([][]float64, p.Ncomp)
	specIm := make([][]float64, p.Ncomp)
	for c := 0; c < p.Ncomp; c++ {
		re, im, _ := linalg.FFT2Real(whitened[c*npix:(c+1)*npix], p.Ny, p.Nx)
		specRe[c] = re
		specIm[c] = im
	}

	outRe := make([][]float64, p.Ncomp)
	outIm := make([][]float64, p.Ncomp)
	for c := range outRe {
		outRe[c] = make([]float64, p.Ny*p.NxHalf)
		outIm[c] = make([]float64, p.Ny*p.NxHalf)
	}
	for i := 0; i < p.Ny*p.NxHalf; i++ {
		for outComp := 0; outComp < p.Ncomp; outComp++ {
			var re, im float64
			for inComp := 0; inComp < p.Ncomp; inComp++ {
				off := (inComp*p.Ncomp + outComp) * p.Ny * p.NxHalf
				cre, cim := p.ICRe[off+i], p.ICIm[off+i]
				sre, sim := specRe[inComp][i], specIm[inComp][i]
				re += cre*sre - cim*sim
				im += cre*sim + cim*sre
			}
			outRe[outComp][i] = re
			outIm[outComp][i] = im
		}
	}

	hw := float64(p.Ny * p.Nx)
	result := make([]float64, p.Ncomp*npix)
	for c := 0; c < p.Ncomp; c++ {
		plane := linalg.IFFT2Real(outRe[c], outIm[c], p.Ny, p.Nx, p.NxHalf)
		for i, v := range plane {
			result[c*npix+i] = v / hw
		}
	}

	final := applyBlock(p.S, result, p.Ncomp, p.Ny, p.Nx)
	copy(x, final)
}

func applyBlock(b linalg.BlockField, x []float64, ncomp, ny, nx int) []float64 {
	npix := ny * nx
	out := make([]float64, len(x))
	for py := 0; py < ny; py++ {
		for px := 0; px < nx; px++ {
			for i := 0; i < ncomp; i++ {
				sum := 0.0
				for j := 0; j < ncomp; j++ {
					sum += b.At(i, j, py, px) * x[j*npix+py*nx+px]
				}
				out[i*npix+py*nx+px] = sum
			}
		}
	}
	return out
}

func whitenByS(s linalg.BlockField, x []float64, ncomp, ny, nx int) []float64 {
	return applyBlock(s, x, ncomp, ny, nx)
}

// RefPoint is one reference pixel chosen by PickRefPoints.
type RefPoint struct{ Y, X int }

// PickRefPoints picks nref reference pixels on the given hit map by
// repeatedly selecting the maximal-residual pixel, then masking a
// disk of radius sqrt(sum(w)/max(w)/(3*pi)) around it. The hit map is
// used as passed in; no smoothing is applied to it.
func PickRefPoints(hits []float64, ny, nx, nref int) []RefPoint {
	w := append([]float64(nil), hits...)
	sum, maxW := 0.0, 0.0
	for _, v := range w {
		sum += v
		if v > maxW {
			maxW = v
		}
	}

	var refs []RefPoint
	for len(refs) < nref && maxW > 0 {
		idx := 0
		best := -math.MaxFloat64
		for i, v := range w {
			if v > best {
				best = v
				idx = i
			}
		}
		if best <= 0 {
			break
		}
		y, x := idx/nx, idx%nx
		refs = append(refs, RefPoint{Y: y, X: x})

		radius := math.Sqrt(sum / maxW / (3 * math.Pi))
		maskDisk(w, ny, nx, y, x, radius)

		maxW = 0
		for _, v := range w {
			if v > maxW {
				maxW = v
			}
		}
	}
	return refs
}

func maskDisk(w []float64, ny, nx, cy, cx int, radius float64) {
	r2 := radius * radius
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			dy, dx := float64(y-cy), float64(x-cx)
			if dy*dy+dx*dx <= r2 {
				w[y*nx+x] = 0
			}
		}
	}
}

// rollToOrigin circularly shifts every component plane so pixel
// (refY,refX) lands at (0,0).
func rollToOrigin(data []float64, ncomp, ny, nx, refY, refX int) []float64 {
	out := make([]float64, len(data))
	npix := ny * nx
	for c := 0; c < ncomp; c++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				sy := (y + refY) % ny
				sx := (x + refX) % nx
				out[c*npix+y*nx+x] = data[c*npix+sy*nx+sx]
			}
		}
	}
	return out
}

// invertSpectrum inverts the measured ncomp x ncomp Fourier-domain
// kernel per frequency bin via 2x2 (or larger) matrix inverse; for
// ncomp==1 this is a scalar reciprocal.
func invertSpectrum(re, im []float64, ncomp, ny, nxHalf int) (outRe, outIm []float64) {
	outRe = make([]float64, len(re))
	outIm = make([]float64, len(im))
	n := ny * nxHalf

	if ncomp == 1 {
		for i := 0; i < n; i++ {
			r, m := re[i], im[i]
			denom := r*r + m*m
			if denom == 0 {
				continue
			}
			outRe[i] = r / denom
			outIm[i] = -m / denom
		}
		return outRe, outIm
	}

	// General ncomp: invert the ncomp x ncomp complex matrix at each
	// frequency bin via Gauss-Jordan elimination (small, fixed size).
	for i := 0; i < n; i++ {
		a := make([][]complex128, ncomp)
		for r := range a {
			a[r] = make([]complex128, ncomp)
			for c := 0; c < ncomp; c++ {
				off := (r*ncomp + c) * n
				a[r][c] = complex(re[off+i], im[off+i])
			}
		}
		inv, ok := complexInverse(a)
		if !ok {
			continue
		}
		for r := 0; r < ncomp; r++ {
			for c := 0; c < ncomp; c++ {
				off := (r*ncomp + c) * n
				outRe[off+i] = real(inv[r][c])
				outIm[off+i] = imag(inv[r][c])
			}
		}
	}
	return outRe, outIm
}

func complexInverse(a [][]complex128) ([][]complex128, bool) {
	n := len(a)
	aug := make([][]complex128, n)
	for i := range aug {
		aug[i] = make([]complex128, 2*n)
		copy(aug[i], a[i])
		aug[i][n+i] = 1
	}
	for col := 0; col < n; col++ {
		pivot := -1
		best := 0.0
		for r := col; r < n; r++ {
			mag := real(aug[r][col])*real(aug[r][col]) + imag(aug[r][col])*imag(aug[r][col])
			if mag > best {
				best = mag
				pivot = r
			}
		}
		if pivot < 0 || best == 0 {
			return nil, false
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]
		p := aug[col][col]
		for c := 0; c < 2*n; c++ {
			aug[col][c] /= p
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := aug[r][col]
			for c := 0; c < 2*n; c++ {
				aug[r][c] -= f * aug[col][c]
			}
		}
	}
	out := make([][]complex128, n)
	for i := range out {
		out[i] = aug[i][n:]
	}
	return out, true
}
