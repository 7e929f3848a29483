package reddit

import "regexp"

// socialPatterns maps platform names to URL patterns seen in profile
// descriptions. First match per platform wins.
var socialPatterns = map[string]*regexp.Regexp{
	"instagram": regexp.MustCompile(`(?i)https?://(?:www\.)?(?:instagram\.com|instagr\.am)/[a-zA-Z0-9._]+`),
	"twitter":   regexp.MustCompile(`(?i)https?://(?:www\.)?(?:twitter\.com|x\.com)/[a-zA-Z0-9_]+`),
	"onlyfans":  regexp.MustCompile(`(?i)https?://(?:www\.)?onlyfans\.com/[a-zA-Z0-9_]+`),
	"tiktok":    regexp.MustCompile(`(?i)https?://(?:www\.)?tiktok\.com/@?[a-zA-Z0-9._]+`),
	"youtube":   regexp.MustCompile(`(?i)https?://(?:www\.)?(?:youtube\.com/@?[a-zA-Z0-9_]+|youtu\.be/[a-zA-Z0-9_-]+)`),
	"twitch":    regexp.MustCompile(`(?i)https?://(?:www\.)?twitch\.tv/[a-zA-Z0-9_]+`),
	"linktree":  regexp.MustCompile(`(?i)https?://(?:www\.)?linktr\.ee/[a-zA-Z0-9_]+`),
}

// ExtractSocialLinks scans free-form profile text for known platform URLs.
// Returns nil when nothing matches.
func ExtractSocialLinks(text string) map[string]string {
	if text == "" {
		return nil
	}
	var links map[string]string
	for platform, pattern := range socialPatterns {
		if match := pattern.FindString(text); match != "" {
			if links == nil {
				links = make(map[string]string)
			}
			links[platform] = match
		}
	}
	return links
}
