package stdenv

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smarm/internal/canonical"
	"github.com/roach88/smarm/internal/eval"
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/manifest"
	"github.com/roach88/smarm/internal/value"
)

func loadV1(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Load(manifest.DefaultVersion)
	require.NoError(t, err)
	return m
}

func run(t *testing.T, src string, grants ...string) (value.Value, *eval.Budget, error) {
	t.Helper()
	m := loadV1(t)
	root, err := Build(m, grants)
	require.NoError(t, err)

	program, err := canonical.ParseText(src)
	require.NoError(t, err)

	b := eval.NewBudget(1_000_000, 1_000_000)
	v, err := eval.New(m, b).EvalProgram(program, root)
	return v, b, err
}

func TestBuild_V1(t *testing.T) {
	m := loadV1(t)

	root, err := Build(m, nil)
	require.NoError(t, err)
	assert.Equal(t, len(m.Primitives)-2, root.Len(), "granted primitives are left out")

	_, err = root.Lookup("vector-set!")
	assert.True(t, halt.Is(err, halt.CodeUnboundVariable))

	granted, err := Build(m, []string{GrantVectorMutation})
	require.NoError(t, err)
	assert.Equal(t, len(m.Primitives), granted.Len())

	p, err := granted.Lookup("vector-set!")
	require.NoError(t, err)
	assert.Equal(t, "vector-set!", p.(*value.Primitive).Name())
}

func TestBuild_UnknownGrant(t *testing.T) {
	_, err := Build(loadV1(t), []string{"network"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown grant "network"`)
}

func TestNames_MatchV1(t *testing.T) {
	m := loadV1(t)
	declared := make([]string, len(m.Primitives))
	for i, p := range m.Primitives {
		declared[i] = p.Name
	}
	assert.ElementsMatch(t, declared, Names())
}

const testManifestHeader = `
version: "smarm/env/v9"
limits: {depth: 10, length: 100}
sizes: {pair: 1, vector: 1, element: 1, cell: 1, closure: 1, frame: 1, binding: 1, sealed: 1, sealer_pair: 1, "bytes": 1, byte: 1, "number": 0, word: 1}
forms: {atom: 1, quote: 1, "if": 1, cond: 1, begin: 1, lambda: 1, define: 1, "let": 1, "let*": 1, letrec: 1, "lambda*": 1, "define*": 1, "and": 1, "or": 1, call: 1, seal: 1, unseal: 1}
`

func TestBuild_Mismatch(t *testing.T) {
	tests := []struct {
		name       string
		primitives string
		wantErr    string
	}{
		{
			name:       "declared without implementation",
			primitives: `primitives: [{name: "frobnicate", min: 0, max: 0, cost: {base: 1}, doc: ""}]`,
			wantErr:    `declares primitive "frobnicate" with no implementation`,
		},
		{
			name:       "implemented without declaration",
			primitives: `primitives: [{name: "car", min: 1, max: 1, cost: {base: 1}, doc: ""}]`,
			wantErr:    "is not declared by smarm/env/v9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := manifest.Parse("v9.cue", []byte(testManifestHeader+tt.primitives))
			require.NoError(t, err)

			_, err = Build(m, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCostFunc(t *testing.T) {
	wide, err := value.BigInt(new(big.Int).Lsh(big.NewInt(1), 200))
	require.NoError(t, err)

	args := []value.Value{
		value.Int(3),
		wide,
		value.Bytes("abcd"),
		value.Symbol("xy"),
		value.List(value.Int(1), value.Int(2)),
		value.NewVector([]value.Value{value.True}),
	}

	tests := []struct {
		unit string
		want int64
	}{
		{manifest.UnitNone, 5},
		{manifest.UnitArgs, 5 + 2*6},
		{manifest.UnitElements, 5 + 2*3},
		{manifest.UnitBytes, 5 + 2*6},
		{manifest.UnitWords, 5 + 2*(1+4)},
		{manifest.UnitCount, 5 + 2*3},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			cost, err := CostFunc(manifest.Cost{Base: 5, Per: 2, Unit: tt.unit})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cost(args))
		})
	}

	_, err = CostFunc(manifest.Cost{Base: 1, Unit: "seconds"})
	assert.Error(t, err)
}

func TestCostFunc_Saturates(t *testing.T) {
	huge, err := value.BigInt(new(big.Int).Lsh(big.NewInt(1), 100))
	require.NoError(t, err)

	cost, err := CostFunc(manifest.Cost{Base: 1, Per: 3, Unit: manifest.UnitCount})
	require.NoError(t, err)
	assert.Equal(t, int64(1<<63-1), cost([]value.Value{huge}))
	assert.Equal(t, int64(1), cost([]value.Value{value.Int(-4)}), "negative counts are zero")
}

func TestPrimitives(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		// numbers
		{"(+)", "0"},
		{"(+ 1 2 3)", "6"},
		{"(- 5)", "-5"},
		{"(- 10 1 2)", "7"},
		{"(* 2 3 4)", "24"},
		{"(*)", "1"},
		{"(/ 1 3)", "1/3"},
		{"(/ 6 3)", "2"},
		{"(/ 2)", "1/2"},
		{"(+ 1/2 1/2)", "1"},
		{"(+ 1 0.5)", "1.5"},
		{"(quotient 7 2)", "3"},
		{"(remainder -7 2)", "-1"},
		{"(modulo -7 2)", "1"},
		{"(= 1 1 1)", "#t"},
		{"(= 1 1.0)", "#t"},
		{"(< 1 2 3)", "#t"},
		{"(< 1 3 2)", "#f"},
		{"(>= 3 3 1)", "#t"},
		{"(> 1)", "#t"},
		{"(zero? 0)", "#t"},
		{"(positive? -1)", "#f"},
		{"(negative? -1/2)", "#t"},
		{"(number? 'a)", "#f"},
		{"(integer? 2.0)", "#t"},
		{"(integer? 1/2)", "#f"},
		{"(rational? 1.5)", "#t"},
		{"(exact? 1/2)", "#t"},
		{"(inexact? 1.5)", "#t"},
		{"(exact->inexact 1/4)", "0.25"},
		{"(inexact->exact 0.25)", "1/4"},
		{"(abs -5)", "5"},
		{"(abs 5)", "5"},
		{"(min 1 2.0)", "1.0"},
		{"(max 1 3 2)", "3"},
		{"(numerator 6/4)", "3"},
		{"(denominator 6/4)", "2"},
		{"(denominator 5)", "1"},
		{"(gcd 12 18)", "6"},
		{"(gcd -4 6)", "2"},
		{"(gcd)", "0"},
		{"(lcm 4 6)", "12"},
		{"(lcm)", "1"},
		{"(expt 2 10)", "1024"},
		{"(expt 2 -2)", "1/4"},
		{"(floor 5/2)", "2"},
		{"(ceiling 5/2)", "3"},
		{"(round 5/2)", "2"},
		{"(round 7/2)", "4"},
		{"(truncate -5/2)", "-2"},
		{"(number->bytes 1/2)", `"1/2"`},
		{`(bytes->number "42")`, "42"},
		{`(bytes->number "x")`, "#f"},

		// booleans and equality
		{"(not #f)", "#t"},
		{"(not 0)", "#f"},
		{"(boolean? '())", "#f"},
		{"(eq? 'a 'a)", "#t"},
		{"(eqv? 1 1.0)", "#f"},
		{"(eq? (list 1) (list 1))", "#f"},
		{"(equal? '(1 #(2)) (list 1 (vector 2)))", "#t"},
		{"(equal? \"ab\" \"ab\")", "#t"},
		{"(procedure? car)", "#t"},
		{"(procedure? 'car)", "#f"},
		{"(procedure? (lambda () 1))", "#t"},

		// pairs and lists
		{"(cons 1 2)", "(1 . 2)"},
		{"(car '(1 2))", "1"},
		{"(cdr '(1 2))", "(2)"},
		{"(cadr '(1 2 3))", "2"},
		{"(cddr '(1 2 3))", "(3)"},
		{"(caddr '(1 2 3))", "3"},
		{"(pair? '())", "#f"},
		{"(null? '())", "#t"},
		{"(list? '(1 . 2))", "#f"},
		{"(list? '())", "#t"},
		{"(list 1 2)", "(1 2)"},
		{"(length '(1 2 3))", "3"},
		{"(append '(1) '(2) 3)", "(1 2 . 3)"},
		{"(append)", "()"},
		{"(reverse '(1 2 3))", "(3 2 1)"},
		{"(list-ref '(a b c) 1)", "b"},
		{"(list-tail '(a b c) 2)", "(c)"},
		{"(memv 2 '(1 2 3))", "(2 3)"},
		{"(memv 9 '(1 2 3))", "#f"},
		{"(member '(1) '((0) (1) (2)))", "((1) (2))"},
		{"(assv 2 '((1 . a) (2 . b)))", "(2 . b)"},
		{`(assoc "k" '(("k" . v)))`, `("k" . v)`},
		{"(apply + 1 2 '(3 4))", "10"},
		{"(apply list '())", "()"},
		{"(map + '(1 2) '(10 20))", "(11 22)"},
		{"(map (lambda (x) (* x x)) '(1 2 3))", "(1 4 9)"},
		{"(for-each car '((1)))", "#!void"},

		// symbols and chars
		{"(symbol? 'a)", "#t"},
		{"(symbol? \"a\")", "#f"},
		{"(symbol->bytes 'abc)", `"abc"`},
		{`(bytes->symbol "abc")`, "abc"},
		{`(char? #\a)`, "#t"},
		{`(char->integer #\a)`, "97"},
		{"(integer->char 65)", `#\A`},
		{`(char=? #\a #\a)`, "#t"},
		{`(char<? #\a #\b #\c)`, "#t"},
		{`(char<? #\b #\a)`, "#f"},

		// byte strings
		{`(bytes? "")`, "#t"},
		{"(make-bytes 3 65)", `"AAA"`},
		{"(bytes 104 105)", `"hi"`},
		{`(bytes-length "abc")`, "3"},
		{`(bytes-ref "abc" 1)`, "98"},
		{`(subbytes "hello" 1 3)`, `"el"`},
		{`(subbytes "hello" 3)`, `"lo"`},
		{`(subbytes "hello" 5)`, `""`},
		{`(bytes-append "a" "b" "")`, `"ab"`},
		{`(bytes=? "a" "a")`, "#t"},
		{`(bytes<? "a" "b")`, "#t"},
		{`(bytes<? "b" "a")`, "#f"},
		{`(bytes->list "AB")`, "(65 66)"},
		{"(list->bytes '(65 66))", `"AB"`},

		// vectors
		{"(vector 1 2)", "#(1 2)"},
		{"(vector? (vector))", "#t"},
		{"(make-vector 2 'x)", "#(x x)"},
		{"(make-vector 1)", "#(#f)"},
		{"(vector-length (vector))", "0"},
		{"(vector-ref (vector 1 2 3) 2)", "3"},
		{"(vector->list (vector 1 2))", "(1 2)"},
		{"(list->vector '(1 2))", "#(1 2)"},

		// cells
		{"(let ((c (new-cell 1))) (cell-set! c 2) (cell-ref c))", "2"},
		{"(cell? (new-cell 1))", "#t"},
		{"(cell? 1)", "#f"},

		// sealing
		{"(let ((p (make-sealer-pair))) ((cdr p) ((car p) 'x)))", "x"},
		{"(sealer? (car (make-sealer-pair)))", "#t"},
		{"(unsealer? (cdr (make-sealer-pair)))", "#t"},
		{"(sealed? ((car (make-sealer-pair)) 1))", "#t"},
		{"(procedure? (car (make-sealer-pair)))", "#t"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, _, err := run(t, tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, canonical.MustFormatText(v))
		})
	}
}

func TestPrimitives_Halts(t *testing.T) {
	tests := []struct {
		src  string
		want halt.Code
	}{
		{"(vector-ref (vector 1 2 3) 5)", halt.CodeTypeError},
		{"(vector-ref (vector 1 2 3) -1)", halt.CodeTypeError},
		{"(+ 1 'a)", halt.CodeTypeError},
		{"(< 1 'a)", halt.CodeTypeError},
		{"(/ 1 0)", halt.CodeTypeError},
		{"(quotient 1 0)", halt.CodeTypeError},
		{"(quotient 1.5 1)", halt.CodeTypeError},
		{"(gcd 1/2)", halt.CodeTypeError},
		{"(expt 2 5000)", halt.CodeTypeError},
		{"(car '())", halt.CodeTypeError},
		{"(cadr '(1))", halt.CodeTypeError},
		{"(length '(1 . 2))", halt.CodeTypeError},
		{"(list-ref '(1) 1)", halt.CodeTypeError},
		{"(list-tail '(1) 2)", halt.CodeTypeError},
		{"(assv 1 '(1))", halt.CodeTypeError},
		{"(apply car '(1) 2)", halt.CodeTypeError},
		{"(apply 1 '())", halt.CodeTypeError},
		{"(map car '(1) '(1 2))", halt.CodeTypeError},
		{"(integer->char 256)", halt.CodeTypeError},
		{`(bytes->symbol "a b")`, halt.CodeTypeError},
		{`(bytes->symbol "12")`, halt.CodeTypeError},
		{"(bytes 300)", halt.CodeTypeError},
		{`(subbytes "abc" 2 1)`, halt.CodeTypeError},
		{"(make-vector -1)", halt.CodeTypeError},
		{"(cell-ref 5)", halt.CodeTypeError},
		{"(cell-set! (vector) 1)", halt.CodeTypeError},
		{"(vector-set! (vector 1) 0 2)", halt.CodeUnboundVariable},
		{"(car)", halt.CodeArityError},
		{"(cons 1)", halt.CodeArityError},
		{"(make-sealer-pair 1)", halt.CodeArityError},
		{"(let ((a (make-sealer-pair)) (b (make-sealer-pair))) ((cdr b) ((car a) 1)))", halt.CodeSealMismatch},
		{"(make-vector 100000000)", halt.CodeBudgetExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, _, err := run(t, tt.src)
			require.Error(t, err)
			assert.Equal(t, tt.want, halt.CodeOf(err), err.Error())
		})
	}
}

func TestLengthLimit(t *testing.T) {
	m := loadV1(t)
	root, err := Build(m, nil)
	require.NoError(t, err)

	eval1 := func(src string) (value.Value, *eval.Budget, error) {
		program, err := canonical.ParseText(src)
		require.NoError(t, err)
		// Budgets far above the limit, so only the limit can stop the call.
		b := eval.NewBudget(1<<40, 1<<40)
		v, err := eval.New(m, b).EvalProgram(program, root)
		return v, b, err
	}

	for _, src := range []string{"(make-vector 1048577)", "(make-bytes 1048577 0)"} {
		t.Run(src, func(t *testing.T) {
			_, b, err := eval1(src)
			var he *halt.Error
			require.ErrorAs(t, err, &he)
			assert.Equal(t, halt.CodeBudgetExhausted, he.Code)
			assert.Equal(t, "length", he.Details["resource"])
			assert.Equal(t, "1048576", he.Details["limit"])
			assert.Less(t, b.Memory(), int64(1024), "nothing was allocated")
		})
	}

	v, _, err := eval1("(bytes-length (make-bytes 1048576))")
	require.NoError(t, err)
	assert.Equal(t, "1048576", canonical.MustFormatText(v))
}

func TestVectorMutationGrant(t *testing.T) {
	v, _, err := run(t, "(let ((v (vector 1 2))) (vector-set! v 0 9) v)", GrantVectorMutation)
	require.NoError(t, err)
	assert.Equal(t, "#(9 2)", canonical.MustFormatText(v))

	v, _, err = run(t, "(let ((v (make-vector 2 0))) (vector-fill! v 7) v)", GrantVectorMutation)
	require.NoError(t, err)
	assert.Equal(t, "#(7 7)", canonical.MustFormatText(v))
}

func TestPrimitiveCosts(t *testing.T) {
	tests := []struct {
		src    string
		steps  int64
		memory int64
	}{
		// + (1 + 1 per word) and two atoms; the one-word result
		{"(+ 1 2)", 5, 1},
		// make-vector (1 + count) and one atom; a three-element vector
		{"(make-vector 3)", 5, 4},
		// two quotes, equal? base and three visited nodes
		{"(equal? '(1) '(1))", 6, 0},
		{"(cons 1 2)", 3, 2},
		{"(new-cell 1)", 2, 2},
		{"(make-sealer-pair)", 2, 6},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, b, err := run(t, tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.steps, b.Steps(), "steps")
			assert.Equal(t, tt.memory, b.Memory(), "memory")
		})
	}
}
