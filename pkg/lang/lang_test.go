package lang

import (
	"encoding/json"
	"errors"
	"testing"

	"src.codepad.dev/pkg/tt"
)

var Args = tt.Args

func TestParse(t *testing.T) {
	tt.Test(t, tt.Fn("Parse", Parse), tt.Table{
		Args("javascript").Rets(JavaScript, nil),
		Args("typescript").Rets(TypeScript, nil),
		Args("python").Rets(Python, nil),
		Args("java").Rets(Java, nil),
		Args("JavaScript").Rets(JavaScript, tt.ErrorWith(`unknown language: "JavaScript"`)),
		Args("go").Rets(JavaScript, tt.ErrorWith("unknown language")),
	})
}

func TestParse_WrapsErrUnknown(t *testing.T) {
	_, err := Parse("cobol")
	if !errors.Is(err, ErrUnknown) {
		t.Errorf("Parse(cobol) -> %v, want error wrapping ErrUnknown", err)
	}
}

func TestExecutable(t *testing.T) {
	tt.Test(t, tt.Fn("Language.Executable", Language.Executable), tt.Table{
		Args(JavaScript).Rets(true),
		Args(TypeScript).Rets(true),
		Args(Python).Rets(false),
		Args(Java).Rets(false),
	})
}

func TestNext(t *testing.T) {
	tt.Test(t, tt.Fn("Language.Next", Language.Next), tt.Table{
		Args(JavaScript).Rets(TypeScript),
		Args(Python).Rets(Java),
		Args(Java).Rets(JavaScript),
	})
}

func TestNames(t *testing.T) {
	tt.Test(t, tt.Fn("Language.String", Language.String), tt.Table{
		Args(TypeScript).Rets("typescript"),
		Args(Language(9)).Rets("Language(9)"),
	})
	tt.Test(t, tt.Fn("Language.DisplayName", Language.DisplayName), tt.Table{
		Args(TypeScript).Rets("TypeScript"),
		Args(Java).Rets("Java"),
	})
}

func TestJSON(t *testing.T) {
	var v struct{ Language Language }
	if err := json.Unmarshal([]byte(`{"Language":"python"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.Language != Python {
		t.Errorf("got %v, want python", v.Language)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"Language":"python"}` {
		t.Errorf("Marshal -> %s", b)
	}
	if err := json.Unmarshal([]byte(`{"Language":"ruby"}`), &v); err == nil {
		t.Errorf("Unmarshal of unknown language returned nil error")
	}
}
