package natives

import (
	"github.com/embervm/embervm/internal/classloader"
	"github.com/embervm/embervm/internal/runtime"
)

// getField reads a declared-or-inherited instance field off obj by name,
// searching obj's own class (natives generally know which concrete JDK
// class they're bound to, but resolving recursively costs nothing and
// tolerates subclassing).
func getField(obj *runtime.Object, name, descriptor string) (runtime.Value, bool) {
	field, declarer, ok := classloader.FindFieldRecursive(obj.Class, name, descriptor)
	if !ok {
		return runtime.Value{}, false
	}
	id, ok := obj.Class.InstanceLayout.Lookup(declarer.Name, field.Name, field.Descriptor)
	if !ok {
		return runtime.Value{}, false
	}
	return obj.Fields.Get(id), true
}

func setField(obj *runtime.Object, name, descriptor string, v runtime.Value) bool {
	field, declarer, ok := classloader.FindFieldRecursive(obj.Class, name, descriptor)
	if !ok {
		return false
	}
	id, ok := obj.Class.InstanceLayout.Lookup(declarer.Name, field.Name, field.Descriptor)
	if !ok {
		return false
	}
	obj.Fields.Set(id, v)
	return true
}
