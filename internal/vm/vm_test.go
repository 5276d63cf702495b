package vm

import (
	"testing"

	"github.com/embervm/embervm/internal/runtime"
)

func buildTestClassWithStaticField(name, descriptor string, t runtime.DataType) *runtime.Class {
	class := runtime.NewClass("test/Holder", runtime.ClassNormal)
	class.Fields = []*runtime.Field{
		{Name: name, Descriptor: descriptor, Type: t, AccessFlags: runtime.AccStatic},
	}
	layout := runtime.NewFieldStorageLayout()
	layout.BeginClass(class.Name)
	layout.Append(class.Name, name, descriptor, t, "")
	class.StaticLayout = layout
	class.StaticValues = runtime.NewFieldStorage(layout)
	return class
}

func TestSetStaticFieldWritesThroughToStorage(t *testing.T) {
	class := buildTestClassWithStaticField("out", "Ljava/io/PrintStream;", runtime.TReference)
	obj := runtime.NewInstance(class)

	if !setStaticField(class, "out", "Ljava/io/PrintStream;", runtime.RefValue(obj)) {
		t.Fatal("setStaticField reported failure for a field that exists")
	}

	id, ok := class.StaticLayout.Lookup(class.Name, "out", "Ljava/io/PrintStream;")
	if !ok {
		t.Fatal("expected the field to be present in the static layout")
	}
	got := class.StaticValues.Get(id)
	if got.Ref != obj {
		t.Fatalf("stored value ref = %v, want %v", got.Ref, obj)
	}
}

func TestSetStaticFieldReportsMissingField(t *testing.T) {
	class := buildTestClassWithStaticField("out", "Ljava/io/PrintStream;", runtime.TReference)
	if setStaticField(class, "err", "Ljava/io/PrintStream;", runtime.Null()) {
		t.Fatal("expected setStaticField to fail for a field that doesn't exist")
	}
}

func TestPreloadClassesIncludesBootstrapEssentials(t *testing.T) {
	want := []string{"java/lang/Object", "java/lang/String", "java/lang/Class", "java/lang/System"}
	for _, name := range want {
		found := false
		for _, c := range preloadClasses {
			if c == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("preloadClasses missing %s", name)
		}
	}
}

func TestExitCodesAreDistinct(t *testing.T) {
	codes := map[int]string{
		ExitSuccess:     "success",
		ExitUncaught:    "uncaught",
		ExitInitFailure: "initFailure",
	}
	if len(codes) != 3 {
		t.Fatalf("exit codes collide: %v", codes)
	}
}
