package camera

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCompute_Pure(t *testing.T) {
	a, err := Compute(16.0 / 9.0)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	b, _ := Compute(16.0 / 9.0)
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			t.Fatalf("element %d differs between calls: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestCompute_AspectOnlyScalesHorizontal(t *testing.T) {
	square, _ := Compute(1)
	wide, _ := Compute(16.0 / 9.0)

	for row := 1; row < 4; row++ {
		for col := 0; col < 4; col++ {
			if square.At(row, col) != wide.At(row, col) {
				t.Errorf("At(%d,%d) changed with aspect: %v vs %v", row, col, square.At(row, col), wide.At(row, col))
			}
		}
	}
	for col := 0; col < 4; col++ {
		want := square.At(0, col) / (16.0 / 9.0)
		if got := wide.At(0, col); math.Abs(float64(got-want)) > 1e-5 {
			t.Errorf("At(0,%d) = %v, want %v", col, got, want)
		}
	}
}

func TestProjection_TopLeftBlock(t *testing.T) {
	aspect := float32(16.0 / 9.0)
	p := Projection(mgl32.DegToRad(DefaultFovDegrees), aspect, DefaultNear, DefaultFar)
	if p.At(0, 1) != 0 || p.At(1, 0) != 0 {
		t.Fatalf("off-diagonal terms of the 2x2 block are not zero: %v", p)
	}
	ratio := p.At(0, 0) / p.At(1, 1)
	if math.Abs(float64(ratio-1/aspect)) > 1e-6 {
		t.Fatalf("x/y scale ratio = %v, want %v", ratio, 1/aspect)
	}
}

func TestCorrection_DepthRange(t *testing.T) {
	c := Correction()
	tests := []struct {
		name  string
		z     float32
		wantZ float32
	}{
		{"near", -1, 0},
		{"mid", 0, 0.5},
		{"far", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Mul4x1(mgl32.Vec4{0.3, -0.2, tt.z, 1})
			if v.Z() != tt.wantZ || v.W() != 1 || v.X() != 0.3 || v.Y() != -0.2 {
				t.Fatalf("Correction * (.., %v, 1) = %v, want z=%v", tt.z, v, tt.wantZ)
			}
		})
	}
}

func TestCompute_OriginInsideFrustum(t *testing.T) {
	m, _ := Compute(4.0 / 3.0)
	clip := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())
	if math.Abs(float64(ndc.X())) > 1e-5 || math.Abs(float64(ndc.Y())) > 1e-5 {
		t.Fatalf("origin projects off-centre: %v", ndc)
	}
	if ndc.Z() <= 0 || ndc.Z() >= 1 {
		t.Fatalf("origin depth %v outside [0,1]", ndc.Z())
	}
}

func TestCamera_MatchesCompute(t *testing.T) {
	c := NewCamera()
	got, err := c.ViewProjection(16.0 / 9.0)
	if err != nil {
		t.Fatalf("ViewProjection error: %v", err)
	}
	want, _ := Compute(16.0 / 9.0)
	if got != want {
		t.Fatalf("ViewProjection = %v, want %v", got, want)
	}
	if c.Aspect() != 16.0/9.0 {
		t.Fatalf("Aspect() = %v, want cached 16/9", c.Aspect())
	}

	other, _ := c.ViewProjection(1)
	if other == got {
		t.Fatal("ViewProjection did not change with aspect")
	}
}

func TestCamera_Options(t *testing.T) {
	c := NewCamera(
		WithEye(mgl32.Vec3{0, 0, 5}),
		WithTarget(mgl32.Vec3{0, 0, 0}),
		WithUp(mgl32.Vec3{0, 1, 0}),
		WithFovDegrees(60),
		WithNear(0.5),
		WithFar(50),
	)
	if c.Eye() != (mgl32.Vec3{0, 0, 5}) || c.Up() != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("options not applied: eye %v up %v", c.Eye(), c.Up())
	}
	if c.Near() != 0.5 || c.Far() != 50 {
		t.Fatalf("near/far = %v/%v, want 0.5/50", c.Near(), c.Far())
	}
	if math.Abs(float64(c.Fov()-mgl32.DegToRad(60))) > 1e-6 {
		t.Fatalf("Fov() = %v, want 60 degrees", c.Fov())
	}
	if c.ViewMatrix() != mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}) {
		t.Fatal("ViewMatrix does not reflect the configured placement")
	}
}

func TestViewProjection_InvalidAspect(t *testing.T) {
	c := NewCamera()
	for _, aspect := range []float32{0, -1, float32(math.NaN()), float32(math.Inf(1))} {
		if _, err := c.ViewProjection(aspect); !errors.Is(err, ErrInvalidAspect) {
			t.Errorf("ViewProjection(%v) error = %v, want ErrInvalidAspect", aspect, err)
		}
		if _, err := Compute(aspect); !errors.Is(err, ErrInvalidAspect) {
			t.Errorf("Compute(%v) error = %v, want ErrInvalidAspect", aspect, err)
		}
	}
	if _, err := AspectRatio(800, 0); !errors.Is(err, ErrInvalidAspect) {
		t.Errorf("AspectRatio(800, 0) error = %v, want ErrInvalidAspect", err)
	}
}

func TestGPUTransformUniform_Marshal(t *testing.T) {
	c := NewCamera()
	u, err := c.Uniform(1.5)
	if err != nil {
		t.Fatalf("Uniform error: %v", err)
	}
	data := u.Marshal()
	if len(data) != 64 || u.Size() != 64 {
		t.Fatalf("uniform size = %d/%d, want 64", len(data), u.Size())
	}
	for i := range 16 {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		if got != u.ViewProj[i] {
			t.Fatalf("element %d = %v, want %v", i, got, u.ViewProj[i])
		}
	}
}
