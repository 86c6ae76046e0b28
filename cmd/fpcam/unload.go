package main

/*
extern void fpcamUnload(void);

__attribute__((destructor)) static void fp_unload(void) {
    fpcamUnload();
}
*/
import "C"
