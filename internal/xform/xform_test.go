package xform

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/diag"
)

const tol = 1e-9

var zAxis = mgl64.Vec3{0, 0, 1}

func assertMatNear(t *testing.T, want, got mgl64.Mat4) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, 1e-7), "want\n%v\ngot\n%v", want, got)
}

func assertVecNear(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, 1e-7), "want %v, got %v", want, got)
}

func TestEvaluateBasics(t *testing.T) {
	p := mgl64.Vec3{1, 2, 3}

	assertVecNear(t, p, Point(Evaluate(Identity{}, 0), p))
	assertVecNear(t, mgl64.Vec3{2, 4, 6}, Point(Evaluate(Translate(1, 2, 3), 0), p))
	assertVecNear(t, mgl64.Vec3{2, 6, 12}, Point(Evaluate(ScaleBy(2, 3, 4), 0), p))
	assertVecNear(t, mgl64.Vec3{-2, 1, 3}, Point(Evaluate(Rotate(90, zAxis), 0), p))
}

func TestEvaluateRotationNormalizesAxis(t *testing.T) {
	a := Evaluate(Rotate(90, mgl64.Vec3{0, 0, 5}), 0)
	b := Evaluate(Rotate(90, zAxis), 0)
	assertMatNear(t, b, a)
}

func TestEvaluateNilIsIdentity(t *testing.T) {
	assertMatNear(t, mgl64.Ident4(), Evaluate(nil, 3))
}

func TestMatrixFromRowsThreeRows(t *testing.T) {
	m, err := MatrixFromRows(
		[4]float64{1, 0, 0, 5},
		[4]float64{0, 1, 0, 6},
		[4]float64{0, 0, 1, 7},
	)
	require.NoError(t, err)
	assertMatNear(t, mgl64.Translate3D(5, 6, 7), m.M)
	require.NoError(t, Validate(m))
}

func TestMatrixFromRowsArity(t *testing.T) {
	_, err := MatrixFromRows([4]float64{1, 0, 0, 0}, [4]float64{0, 1, 0, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 or 4 rows")
}

func TestCompositeApplicationOrder(t *testing.T) {
	t1 := Translate(1, 0, 0)
	t2 := Rotate(90, zAxis)
	c := Sequence(t1, t2)
	p := mgl64.Vec3{1, 1, 0}

	for _, time := range []float64{-1, 0, 0.5, 10} {
		want := Point(Evaluate(t2, time), Point(Evaluate(t1, time), p))
		got := Point(Evaluate(c, time), p)
		assertVecNear(t, want, got)
	}
	// translate first gives (2,1,0), then rotate gives (-1,2,0)
	assertVecNear(t, mgl64.Vec3{-1, 2, 0}, Point(Evaluate(c, 0), p))
}

func TestComposeStatic(t *testing.T) {
	a := Translate(1, 0, 0)
	b := ScaleBy(2, 2, 2)

	c, err := Compose(a, b)
	require.NoError(t, err)
	require.IsType(t, Composite{}, c)

	p := mgl64.Vec3{1, 0, 0}
	assertVecNear(t, mgl64.Vec3{4, 0, 0}, Point(Evaluate(c, 0), p))
}

func TestComposeFlattensAndDropsIdentity(t *testing.T) {
	c, err := Compose(Sequence(Identity{}, Translate(1, 0, 0)), Sequence(Translate(0, 1, 0), Identity{}))
	require.NoError(t, err)

	comp, ok := c.(Composite)
	require.True(t, ok)
	assert.Len(t, comp.Steps, 2)

	single, err := Compose(Identity{}, Translate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, Translate(1, 0, 0), single)

	none, err := Compose(Identity{}, Sequence())
	require.NoError(t, err)
	assert.Equal(t, Identity{}, none)
}

func TestComposeAnimatedWithStatic(t *testing.T) {
	anim := Animated{Start: Translate(0, 0, 0), End: Translate(10, 0, 0), StartTime: 0, EndTime: 1}
	parent := Translate(0, 5, 0)

	c, err := Compose(anim, parent)
	require.NoError(t, err)
	require.True(t, IsAnimated(c))
	require.NoError(t, Validate(c))

	assertVecNear(t, mgl64.Vec3{0, 5, 0}, Point(Evaluate(c, 0), mgl64.Vec3{}))
	assertVecNear(t, mgl64.Vec3{10, 5, 0}, Point(Evaluate(c, 1), mgl64.Vec3{}))
}

func TestComposeAnimatedIntervals(t *testing.T) {
	a := Animated{Start: Identity{}, End: Translate(1, 0, 0), StartTime: 0, EndTime: 1}
	same := Animated{Start: Identity{}, End: Translate(0, 1, 0), StartTime: 0, EndTime: 1}
	other := Animated{Start: Identity{}, End: Translate(0, 1, 0), StartTime: 0, EndTime: 2}

	c, err := Compose(a, same)
	require.NoError(t, err)
	assertVecNear(t, mgl64.Vec3{1, 1, 0}, Point(Evaluate(c, 1), mgl64.Vec3{}))

	_, err = Compose(a, other)
	require.Error(t, err)
	assert.True(t, diag.Is(err, diag.CodeTransform))
}

func TestAnimatedBoundaryLaw(t *testing.T) {
	start := Sequence(ScaleBy(1, 2, 1), Rotate(30, mgl64.Vec3{1, 1, 0}), Translate(1, 2, 3))
	end := Sequence(Rotate(120, zAxis), Translate(-4, 0, 2))
	anim := Animated{Start: start, End: end, StartTime: 2, EndTime: 5}

	assertMatNear(t, Evaluate(start, 2), Evaluate(anim, 2))
	assertMatNear(t, Evaluate(end, 5), Evaluate(anim, 5))
	assertMatNear(t, Evaluate(anim, 2), Evaluate(anim, -100))
	assertMatNear(t, Evaluate(anim, 5), Evaluate(anim, 100))
}

func TestAnimatedMidpoint(t *testing.T) {
	anim := Animated{
		Start:     Identity{},
		End:       Sequence(Rotate(90, zAxis), Translate(10, 0, 0)),
		StartTime: 0,
		EndTime:   1,
	}
	m := Evaluate(anim, 0.5)

	// half of the rotation, half of the translation
	want := mgl64.Translate3D(5, 0, 0).Mul4(mgl64.HomogRotate3D(mgl64.DegToRad(45), zAxis))
	assertMatNear(t, want, m)
}

func TestAnimatedInterpolatesScale(t *testing.T) {
	anim := Animated{Start: ScaleBy(1, 1, 1), End: ScaleBy(3, 3, 3), StartTime: 0, EndTime: 2}
	assertMatNear(t, mgl64.Scale3D(2, 2, 2), Evaluate(anim, 1))
}

func TestAnimatedShortestArc(t *testing.T) {
	// 350 degrees about z is -10 degrees; the midpoint must be -5, not 175.
	anim := Animated{Start: Identity{}, End: Rotate(350, zAxis), StartTime: 0, EndTime: 1}
	want := mgl64.HomogRotate3D(mgl64.DegToRad(-5), zAxis)
	assertMatNear(t, want, Evaluate(anim, 0.5))
}

func TestAnimatedDegenerateInterval(t *testing.T) {
	anim := Animated{Start: Translate(1, 0, 0), End: Translate(2, 0, 0), StartTime: 3, EndTime: 3}
	require.NoError(t, Validate(anim))

	assert.Equal(t, 0.0, anim.Param(2.9))
	assert.Equal(t, 0.0, anim.Param(3), "the start pose holds at start_time")
	assert.Equal(t, 1.0, anim.Param(3.1))
	assertMatNear(t, Evaluate(Translate(1, 0, 0), 0), Evaluate(anim, 2))
	assertMatNear(t, Evaluate(Translate(1, 0, 0), 0), Evaluate(anim, 3))
	assertMatNear(t, Evaluate(Translate(2, 0, 0), 0), Evaluate(anim, 4))
	assert.False(t, math.IsNaN(Evaluate(anim, 3)[12]))
}

func TestDecomposeRoundTrip(t *testing.T) {
	cases := map[string]Transform{
		"trs":        Sequence(ScaleBy(2, 3, 4), Rotate(37, mgl64.Vec3{1, 2, 3}), Translate(5, -1, 2)),
		"reflection": Sequence(ScaleBy(-1, 1, 1), Rotate(20, zAxis)),
		"identity":   Identity{},
	}
	for name, tr := range cases {
		t.Run(name, func(t *testing.T) {
			m := Evaluate(tr, 0)
			p, ok := Decompose(m)
			require.True(t, ok)
			assert.InDelta(t, 1.0, p.Rotation.Len(), tol)
			assertMatNear(t, m, p.Matrix())
		})
	}
}

func TestDecomposeSingular(t *testing.T) {
	_, ok := Decompose(mgl64.Scale3D(1, 0, 1))
	assert.False(t, ok)
}

func TestValidateRejectsAnimatedInComposite(t *testing.T) {
	anim := Animated{Start: Identity{}, End: Translate(1, 0, 0), StartTime: 0, EndTime: 1}
	err := Validate(Sequence(Translate(1, 0, 0), anim))
	require.Error(t, err)

	all := diag.All(err)
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeTransform, all[0].Code)
	assert.Equal(t, "transform.transf[1]", all[0].Path)
	assert.Contains(t, all[0].Message, "composite")
}

func TestValidateRejectsNestedAnimated(t *testing.T) {
	inner := Animated{Start: Identity{}, End: Translate(1, 0, 0), StartTime: 0, EndTime: 1}
	err := Validate(Animated{Start: inner, End: Identity{}, StartTime: 0, EndTime: 1})
	require.Error(t, err)

	all := diag.All(err)
	require.Len(t, all, 1)
	assert.Equal(t, "transform.start_transf", all[0].Path)
}

func TestValidateRejectsSingularMatrix(t *testing.T) {
	m, err := MatrixFromRows(
		[4]float64{1, 2, 3, 0},
		[4]float64{2, 4, 6, 0},
		[4]float64{0, 0, 1, 0},
	)
	require.NoError(t, err)

	err = ValidateAt(m, "car", "members[0].transform")
	require.Error(t, err)
	all := diag.All(err)
	require.Len(t, all, 1)
	assert.Equal(t, "car", all[0].Entity)
	assert.Equal(t, "members[0].transform", all[0].Path)
	assert.Contains(t, all[0].Message, "not invertible")
}

func TestValidateRejectsProjectiveRow(t *testing.T) {
	m, err := MatrixFromRows(
		[4]float64{1, 0, 0, 0},
		[4]float64{0, 1, 0, 0},
		[4]float64{0, 0, 1, 0},
		[4]float64{0, 0, 1, 0},
	)
	require.NoError(t, err)
	err = Validate(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not affine")
}

func TestValidateRejectsReversedInterval(t *testing.T) {
	err := Validate(Animated{Start: Identity{}, End: Identity{}, StartTime: 2, EndTime: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after end_time")
}

func TestValidateCollectsAll(t *testing.T) {
	anim := Animated{Start: Identity{}, End: Identity{}, StartTime: 0, EndTime: 1}
	err := Validate(Sequence(ScaleBy(0, 1, 1), Rotate(10, mgl64.Vec3{}), anim))
	assert.Equal(t, 3, diag.Count(err))
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	anim := Animated{
		Start:     Sequence(Translate(1, 2, 3), Rotate(45, zAxis)),
		End:       ScaleBy(2, 2, 2),
		StartTime: 0,
		EndTime:   1,
	}
	assert.NoError(t, Validate(anim))
	assert.NoError(t, Validate(nil))
}

func TestChainStaticAndAnimated(t *testing.T) {
	c := NewChain().Nest(Translate(0, 0, 1)).Nest(ScaleBy(2, 2, 2))
	m, ok := c.Static()
	require.True(t, ok)
	// scale (local) then translate (parent)
	assertVecNear(t, mgl64.Vec3{2, 0, 1}, Point(m, mgl64.Vec3{1, 0, 0}))

	anim := Animated{Start: Identity{}, End: Translate(4, 0, 0), StartTime: 0, EndTime: 1}
	ca := c.Nest(anim)
	assert.True(t, ca.Animated())
	_, ok = ca.Static()
	assert.False(t, ok)
	assertVecNear(t, mgl64.Vec3{4, 0, 1}, Point(ca.At(0.5), mgl64.Vec3{}))

	// the parent chain is untouched
	assert.False(t, c.Animated())
	assert.Equal(t, 2, c.Len())
}

func TestChainMixedIntervals(t *testing.T) {
	a := Animated{Start: Identity{}, End: Translate(1, 0, 0), StartTime: 0, EndTime: 1}
	b := Animated{Start: Identity{}, End: Translate(0, 1, 0), StartTime: 0, EndTime: 2}
	c := NewChain(a, b)

	assertVecNear(t, mgl64.Vec3{1, 0.5, 0}, Point(c.At(1), mgl64.Vec3{}))

	_, err := c.Transform()
	assert.Error(t, err)

	start, end, ok := c.Interval()
	require.True(t, ok)
	assert.Equal(t, 0.0, start)
	assert.Equal(t, 2.0, end)
	assert.Len(t, c.Stages(), 2)

	_, _, ok = NewChain(Translate(1, 0, 0)).Interval()
	assert.False(t, ok)
}

func TestChainTransformFold(t *testing.T) {
	c := NewChain(Translate(1, 0, 0), Rotate(90, zAxis))
	tr, err := c.Transform()
	require.NoError(t, err)
	assertMatNear(t, c.At(0), Evaluate(tr, 0))
}

func TestChainNestDoesNotAlias(t *testing.T) {
	base := NewChain(Translate(1, 0, 0))
	a := base.Nest(Translate(0, 1, 0))
	b := base.Nest(Translate(0, 0, 1))

	assertVecNear(t, mgl64.Vec3{1, 1, 0}, Point(a.At(0), mgl64.Vec3{}))
	assertVecNear(t, mgl64.Vec3{1, 0, 1}, Point(b.At(0), mgl64.Vec3{}))
}

func TestNormalAndInverse(t *testing.T) {
	m := Evaluate(Sequence(ScaleBy(2, 1, 1), Translate(3, 0, 0)), 0)
	assertVecNear(t, mgl64.Vec3{1, 0, 0}, Vector(m, mgl64.Vec3{0.5, 0, 0}))
	assertVecNear(t, mgl64.Vec3{0.5, 0, 0}, Normal(m, mgl64.Vec3{1, 0, 0}))
	assertMatNear(t, mgl64.Ident4(), Inverse(m).Mul4(m))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "animated", KindAnimated.String())
	k, ok := ParseKind("translate")
	require.True(t, ok)
	assert.Equal(t, KindTranslation, k)
	_, ok = ParseKind("shear")
	assert.False(t, ok)
}

func TestEncode(t *testing.T) {
	enc := Encode(Animated{Start: Translate(1, 2, 3), End: Identity{}, StartTime: 0, EndTime: 1})
	assert.Equal(t, "animated", enc["type"])
	start := enc["start_transf"].(map[string]any)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, start["trans"])
}
