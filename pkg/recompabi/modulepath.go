package recompabi

/*
#cgo linux LDFLAGS: -ldl

#ifdef _WIN32
#define WIN32_LEAN_AND_MEAN
#include <windows.h>
#include <stdlib.h>

static char* fp_module_path(void) {
    HMODULE mod = NULL;
    if (!GetModuleHandleExA(GET_MODULE_HANDLE_EX_FLAG_FROM_ADDRESS |
                            GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT,
                            (LPCSTR)fp_module_path, &mod)) {
        return NULL;
    }
    DWORD size = MAX_PATH;
    char* buf = NULL;
    for (;;) {
        char* grown = (char*)realloc(buf, size);
        if (!grown) {
            free(buf);
            return NULL;
        }
        buf = grown;
        DWORD n = GetModuleFileNameA(mod, buf, size);
        if (n == 0) {
            free(buf);
            return NULL;
        }
        if (n < size) {
            return buf;
        }
        size *= 2;
    }
}

#else

#define _GNU_SOURCE
#include <dlfcn.h>
#include <stdlib.h>
#include <string.h>

static char* fp_module_path(void) {
    Dl_info info;
    if (dladdr((void*)fp_module_path, &info) == 0 || info.dli_fname == NULL) {
        return NULL;
    }
    return strdup(info.dli_fname);
}

#endif
*/
import "C"

import (
	"os"
	"path/filepath"
	"unsafe"
)

// ModulePath returns the absolute path of the shared library this code was
// loaded from, or "" if the loader cannot tell.
func ModulePath() string {
	p := C.fp_module_path()
	if p == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(p))
	return C.GoString(p)
}

// ModuleFolder returns the directory holding the shared library. Config,
// logs and the status file live there. Falls back to the executable's
// directory, then the working directory.
func ModuleFolder() string {
	return moduleFolder(ModulePath(), os.Executable, os.Getwd)
}

func moduleFolder(modulePath string, executable, getwd func() (string, error)) string {
	if modulePath != "" {
		if abs, err := filepath.Abs(modulePath); err == nil {
			return filepath.Dir(abs)
		}
	}
	if exe, err := executable(); err == nil && exe != "" {
		return filepath.Dir(exe)
	}
	if wd, err := getwd(); err == nil {
		return wd
	}
	return "."
}
