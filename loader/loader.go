// Package loader resolves class names to parsed class files from a
// filesystem classpath.
package loader

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/javelin-vm/javelin/classfile"
	"github.com/javelin-vm/javelin/errz"
)

// PathLoader maps class names to .class files under a list of classpath
// directories, searched in order. Parsed classes are cached, so repeated
// resolution of the same name is cheap and always yields the same *Class.
type PathLoader struct {
	paths  []string
	cache  map[string]*classfile.Class
	logger zerolog.Logger
}

// Option configures a PathLoader.
type Option func(*PathLoader)

// WithLogger attaches a logger; resolution attempts and cache hits are
// logged at debug level.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *PathLoader) {
		l.logger = logger
	}
}

// New creates a loader that searches the given directories in order.
func New(paths []string, options ...Option) *PathLoader {
	l := &PathLoader{
		paths:  paths,
		cache:  map[string]*classfile.Class{},
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Add makes an already-parsed class resolvable by name.
func (l *PathLoader) Add(class *classfile.Class) {
	l.cache[class.Name()] = class
}

// ResolveClass finds and parses the class file for an internal class name
// such as "com/example/Main". Package separators map to directories.
func (l *PathLoader) ResolveClass(name string) (*classfile.Class, error) {
	if class, ok := l.cache[name]; ok {
		l.logger.Debug().Str("class", name).Msg("class cache hit")
		return class, nil
	}
	relative := filepath.FromSlash(name) + ".class"
	for _, dir := range l.paths {
		path := filepath.Join(dir, relative)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		l.logger.Debug().Str("class", name).Str("path", path).Msg("loading class file")
		class, err := classfile.ParseFile(path)
		if err != nil {
			return nil, err
		}
		if class.Name() != name {
			return nil, errz.Newf(errz.ErrFormat,
				"class file %s declares name %q, expected %q", path, class.Name(), name)
		}
		l.cache[name] = class
		return class, nil
	}
	l.logger.Debug().Str("class", name).Msg("class not found on classpath")
	return nil, errz.Newf(errz.ErrClassNotFound,
		"class %q was not found on the classpath", name)
}
