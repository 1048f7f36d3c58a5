// Package thucloud talks to a Seafile share link (such as those served by
// cloud.tsinghua.edu.cn) and turns it into a download manifest.
//
// The package handles three steps:
//
//  1. Parsing the share link into a share identifier and server base URL
//  2. Reading the share title from the landing page (the local root name)
//  3. Walking the directory tree through the listing API
//
// # Resolving a Share
//
//	share, err := thucloud.Resolve(ctx, client, "https://cloud.tsinghua.edu.cn/d/0123456789abcdef0123/")
//	if err != nil {
//	    var cfgErr *thucloud.ConfigurationError
//	    if errors.As(err, &cfgErr) {
//	        // bad link or page without a title
//	    }
//	}
//
// # Discovery
//
//	d := thucloud.NewDiscoverer(client, log)
//	manifest, err := d.Discover(ctx, share, thucloud.DiscoverOptions{
//	    Exclude:  model.ParseExtensionList("mp4,mkv"),
//	    MaxDepth: 256,
//	})
//
// # Wire Format
//
// The listing endpoint is
//
//	GET {base}/api/v2.1/share-links/{id}/dirents/?thumbnail_size=48&path={path}
//
// and answers with {"dirent_list": [...]} where each entry has is_dir plus
// either folder_path or file_path and size. Files are fetched from
//
//	GET {base}/d/{id}/files/?p={file_path}&dl=1
package thucloud
