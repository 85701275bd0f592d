package filter

// DefaultConfig returns the curated baseline policy. Deployments usually
// extend these lists through the policy file; the defaults exist so the
// gateway is safe out of the box.
func DefaultConfig() Config {
	return Config{
		Version:               "v1",
		CategoryFilterEnabled: true,
		ClassificationTerms: []string{
			"伦理", "倫理", "三级", "写真", "福利", "成人",
			"里番", "门事件", "国产传媒", "制服诱惑", "无码", "有码",
		},
		BlockedTerms: []string{
			"伦理片", "福利", "里番动漫", "门事件", "萝莉少女",
			"制服诱惑", "国产传媒", "cosplay", "黑丝诱惑",
			"无码", "日本无码", "有码", "日本有码", "swag",
			"网红主播", "色情片", "同性片", "福利视频", "福利片",
			"写真热舞", "倫理片", "理论片", "韩国伦理", "港台三级",
			"三级", "三级片", "电影解说", "伦理", "日本伦理",
			"赌博", "博彩", "赌场", "彩票", "棋牌", "老虎机",
			"百家乐", "真人视讯", "菠菜", "六合彩", "时时彩",
			"捕鱼", "斗地主", "德州扑克", "沙巴", "开元", "皇冠",
			"罪恶之渊",
		},
		WhitelistTitles: []string{
			"罪恶之渊",
		},
	}
}
