// cramfuse mounts a source directory as a read-only FUSE filesystem that
// synthesizes a virtual BAM file beside every CRAM file it contains.
package main

import "github.com/wtsi-hgi/cramfuse/cmd"

func main() {
	cmd.Execute()
}
