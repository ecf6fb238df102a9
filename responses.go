package prometheus

import (
	"fmt"
	"strings"

	"github.com/toastnco/prometheus/safety"
)

// FeatureWelcome is the welcome-card feature.
const FeatureWelcome = "welcome"

// featureNames maps a feature to how replies refer to it.
var featureNames = map[string]string{
	FeatureWelcome: "the welcome messages",
}

// FeatureName returns the display name of feature and whether it exists.
func FeatureName(feature string) (string, bool) {
	name, ok := featureNames[feature]
	return name, ok
}

const signature = "Clifton Toaster Reid\nBearer of the Prometheus Banner"

const enableTemplate = `My distinguished lord,

I humbly bring to your attention tidings of great import. The very feature thou didst beseech, namely %s, hath been ushered into existence within this realm. May I express my utmost delight in relaying this news, and I beseech thee to partake in its offerings with the same zeal that ignited its conception. In unwavering reverence, I remain...

Yours in loyal service,

` + signature

const disableTemplate = `Honorable Sir,

May it please thee to know that the feature thou didst inquire about, %s by name, hath been deemed unfit for this realm and thus remaineth disabled. It is with regret that I bear this message, for it is my utmost desire to fulfill thy wishes. Thy understanding and continued guidance are invaluable to us.

With sincerest regards,

` + signature

// PermissionDeniedReply is sent, mentioning the caller, when a feature
// toggle is refused.
const PermissionDeniedReply = `Kind and honorable Sir,

With sincere regret, I must impart that the permissions requisite for the action thou wishest to undertake have not been bestowed upon thee at this juncture. Worry not, for the potential lies ahead. When thou art granted the authority befitting thy station, the path shall be clear for thee to partake in the endeavor. Until then, I remain at your service to address any queries or concerns.

With the utmost respect,

` + signature

// UnknownFeatureReply answers a toggle for a feature that does not exist.
const UnknownFeatureReply = `Most wondrous and esteemed Sir,

In awe do I pen these words, for thou hast proven to transcend the passage of ages. How thou came to know of a feature ere its birth baffles my comprehension, yet it is with the utmost admiration that I extend my heartfelt felicitations unto thee. A true master of temporal boundaries, a challenger of time itself, thou art.

With boundless respect and marvel,

` + signature

const maliciousTemplate = `Greetings and good fortune be upon thee,

May this correspondence reach thee in the best of health and spirits. We humbly scribe to thee, urgently laying forth a matter of gravest concern. It is with utmost respect that we present these identified links for thy immediate consideration:

- %s

Our vigilance hath discovered these links, casting shadows of potential peril. The platforms of %s, in their wisdom, have raised warnings of %s that may lurk therein.

Furthermore, it is of great import to declare that our loyal automaton, by its design, doth not dispatch links without thy explicit directive. Should an unsolicited link assail thy senses, we beseech thee to dismiss it, for it might be tainted with nefarious designs.

In gratitude, we commend thy swift action in attending to this pressing matter. Thy response shall stand as a bulwark safeguarding the security and tranquility of our esteemed recipients.

With the utmost esteem and consideration,

` + signature

// EnableReply confirms that feature was turned on.
func EnableReply(feature string) string {
	return fmt.Sprintf(enableTemplate, displayName(feature))
}

// DisableReply confirms that feature is off.
func DisableReply(feature string) string {
	return fmt.Sprintf(disableTemplate, displayName(feature))
}

// MaliciousLinkReply reports the matches of a link check.
func MaliciousLinkReply(r *safety.Response) string {
	s := safety.Summarize(r)
	return fmt.Sprintf(maliciousTemplate,
		safety.JoinWithAnd(s.Links),
		strings.Join(s.Platforms, "\n- "),
		safety.JoinWithAnd(s.Threats),
	)
}

func displayName(feature string) string {
	if name, ok := featureNames[feature]; ok {
		return name
	}
	return feature
}
